package chain

// Event names emitted by the platform contracts.
const (
	EventPaidForDeployment = "PaidForDeployment"
	EventCollectionCreated = "CollectionCreated"
)

// PaymentEventsABI describes the events this service decodes: deployment
// fee transfers on the payment contract and the contract-created signal in
// factory receipts.
const PaymentEventsABI = `[
	{
		"type": "event",
		"name": "PaidForDeployment",
		"inputs": [
			{"name": "sender", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false},
			{"name": "collectionId", "type": "bytes32", "indexed": true}
		]
	},
	{
		"type": "event",
		"name": "CollectionCreated",
		"inputs": [
			{"name": "contractAddress", "type": "address", "indexed": true},
			{"name": "collectionId", "type": "bytes32", "indexed": true}
		]
	}
]`

// FactoryABI is the deploy entrypoint on the collection factory.
const FactoryABI = `[
	{
		"type": "function",
		"name": "deployCollection",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "collectionId", "type": "bytes32"},
			{"name": "name", "type": "string"},
			{"name": "symbol", "type": "string"},
			{"name": "baseURI", "type": "string"},
			{"name": "royaltyReceiver", "type": "address"},
			{"name": "payoutAddress", "type": "address"},
			{"name": "price", "type": "uint256"},
			{"name": "royaltyBps", "type": "uint256"},
			{"name": "maxSupply", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "withdraw",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "collectionContract", "type": "address"},
			{"name": "recipient", "type": "address"}
		],
		"outputs": []
	}
]`
