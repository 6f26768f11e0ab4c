package abis

const erc20JSON = `[
  {"type": "event", "name": "Transfer", "anonymous": false, "inputs": [
    {"name": "from", "type": "address", "indexed": true},
    {"name": "to", "type": "address", "indexed": true},
    {"name": "value", "type": "uint256", "indexed": false}]},
  {"type": "event", "name": "Approval", "anonymous": false, "inputs": [
    {"name": "owner", "type": "address", "indexed": true},
    {"name": "spender", "type": "address", "indexed": true},
    {"name": "value", "type": "uint256", "indexed": false}]},
  {"type": "function", "name": "name", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "string"}]},
  {"type": "function", "name": "symbol", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "string"}]},
  {"type": "function", "name": "decimals", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "uint8"}]},
  {"type": "function", "name": "totalSupply", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "balanceOf", "stateMutability": "view",
    "inputs": [{"name": "account", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "allowance", "stateMutability": "view",
    "inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "transfer", "stateMutability": "nonpayable",
    "inputs": [{"name": "to", "type": "address"}, {"name": "value", "type": "uint256"}],
    "outputs": [{"name": "", "type": "bool"}]},
  {"type": "function", "name": "approve", "stateMutability": "nonpayable",
    "inputs": [{"name": "spender", "type": "address"}, {"name": "value", "type": "uint256"}],
    "outputs": [{"name": "", "type": "bool"}]},
  {"type": "function", "name": "transferFrom", "stateMutability": "nonpayable",
    "inputs": [{"name": "from", "type": "address"}, {"name": "to", "type": "address"}, {"name": "value", "type": "uint256"}],
    "outputs": [{"name": "", "type": "bool"}]}
]`

// Some early tokens return name and symbol as bytes32.
const erc20Bytes32JSON = `[
  {"type": "function", "name": "name", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]},
  {"type": "function", "name": "symbol", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]},
  {"type": "function", "name": "decimals", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "uint8"}]}
]`
