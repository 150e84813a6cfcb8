package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/models"
)

type networkClient struct {
	cfg     config.NetworkConfig
	client  *ethclient.Client
	chainID *big.Int
	signer  *ecdsa.PrivateKey
	factory common.Address
}

// EthClient implements Client and LogSource over go-ethereum for every
// configured network. The network map is fixed at construction; there is no
// runtime registration.
type EthClient struct {
	networks   map[string]*networkClient
	factoryABI ethabi.ABI
	log        *zap.Logger
}

func NewEthClient(ctx context.Context, networks map[string]config.NetworkConfig, log *zap.Logger) (*EthClient, error) {
	factoryABI, err := ethabi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("parse factory ABI: %w", err)
	}

	ec := &EthClient{
		networks:   make(map[string]*networkClient, len(networks)),
		factoryABI: factoryABI,
		log:        log,
	}

	for name, cfg := range networks {
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s rpc: %w", name, err)
		}

		nc := &networkClient{
			cfg:     cfg,
			client:  client,
			chainID: big.NewInt(cfg.ChainID),
			factory: common.HexToAddress(cfg.FactoryContract),
		}
		if cfg.DeployerKey != "" {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.DeployerKey, "0x"))
			if err != nil {
				return nil, fmt.Errorf("parse %s deployer key: %w", name, err)
			}
			nc.signer = key
		}
		ec.networks[name] = nc

		log.Info("chain rpc connected", zap.String("network", name), zap.Int64("chain_id", cfg.ChainID))
	}

	return ec, nil
}

func (e *EthClient) network(name string) (*networkClient, error) {
	nc, ok := e.networks[name]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", name)
	}
	return nc, nil
}

// Deploy submits a factory deployCollection transaction and waits for it to
// mine. The receipt is returned as-is; extracting the created contract
// address from its logs is the caller's concern.
func (e *EthClient) Deploy(ctx context.Context, params DeployParams) (*Receipt, error) {
	nc, err := e.network(params.Network)
	if err != nil {
		return nil, err
	}

	price, err := models.ParseAmount(params.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", params.Price, err)
	}

	calldata, err := e.factoryABI.Pack("deployCollection",
		CollectionIDToBytes32(params.CollectionID),
		params.Name,
		params.Symbol,
		params.BaseURI,
		common.HexToAddress(params.RoyaltyAddress),
		common.HexToAddress(params.PayoutAddress),
		price,
		big.NewInt(params.RoyaltyBPS),
		big.NewInt(params.MaxSupply),
	)
	if err != nil {
		return nil, fmt.Errorf("encode deployCollection: %w", err)
	}

	return e.sendTx(ctx, nc, calldata)
}

// Withdraw sends accumulated mint proceeds of a deployed collection
// contract to the recipient.
func (e *EthClient) Withdraw(ctx context.Context, network, contractAddress, recipient string) (*Receipt, error) {
	nc, err := e.network(network)
	if err != nil {
		return nil, err
	}

	calldata, err := e.factoryABI.Pack("withdraw",
		common.HexToAddress(contractAddress),
		common.HexToAddress(recipient),
	)
	if err != nil {
		return nil, fmt.Errorf("encode withdraw: %w", err)
	}

	return e.sendTx(ctx, nc, calldata)
}

func (e *EthClient) GetBalance(ctx context.Context, network, address string) (string, error) {
	nc, err := e.network(network)
	if err != nil {
		return "", err
	}
	bal, err := nc.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", fmt.Errorf("get balance: %w", err)
	}
	return bal.String(), nil
}

func (e *EthClient) sendTx(ctx context.Context, nc *networkClient, calldata []byte) (*Receipt, error) {
	if nc.signer == nil {
		return nil, fmt.Errorf("network %s has no deployer key configured", nc.cfg.Name)
	}
	from := crypto.PubkeyToAddress(nc.signer.PublicKey)

	nonce, err := nc.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := nc.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := nc.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &nc.factory,
		Data: calldata,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, nc.factory, big.NewInt(0), gasLimit, gasPrice, calldata)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(nc.chainID), nc.signer)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := nc.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, nc.client, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", signed.Hash().Hex())
	}

	out := &Receipt{TxHash: receipt.TxHash.Hex()}
	for _, lg := range receipt.Logs {
		out.Logs = append(out.Logs, fromEthLog(*lg))
	}
	return out, nil
}

// SubscribeLogs streams the given contract's logs. The returned error
// channel reports subscription drops; the caller owns reconnect policy.
func (e *EthClient) SubscribeLogs(ctx context.Context, network, contract string) (<-chan Log, <-chan error, error) {
	nc, err := e.network(network)
	if err != nil {
		return nil, nil, err
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(contract)},
	}

	raw := make(chan types.Log, 64)
	sub, err := nc.client.SubscribeFilterLogs(ctx, query, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe logs on %s: %w", network, err)
	}

	out := make(chan Log, 64)
	errs := make(chan error, 1)
	go forwardLogs(ctx, sub, raw, out, errs)
	return out, errs, nil
}

// forwardLogs pumps raw logs into out until the subscription drops or ctx
// is canceled. The send is ctx-guarded so a consumer that stopped reading
// cannot strand the goroutine on a full buffer.
func forwardLogs(ctx context.Context, sub ethereum.Subscription, raw <-chan types.Log, out chan<- Log, errs chan<- error) {
	defer sub.Unsubscribe()
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			errs <- err
			return
		case lg := <-raw:
			select {
			case out <- fromEthLog(lg):
			case <-ctx.Done():
				return
			}
		}
	}
}

func fromEthLog(lg types.Log) Log {
	topics := make([]string, 0, len(lg.Topics))
	for _, t := range lg.Topics {
		topics = append(topics, t.Hex())
	}
	return Log{
		Address:     strings.ToLower(lg.Address.Hex()),
		Topics:      topics,
		Data:        lg.Data,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		Index:       lg.Index,
	}
}
