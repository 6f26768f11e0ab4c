package abis

const uniswapV3PoolJSON = `[
  {"type": "event", "name": "Initialize", "anonymous": false, "inputs": [
    {"name": "sqrtPriceX96", "type": "uint160", "indexed": false},
    {"name": "tick", "type": "int24", "indexed": false}]},
  {"type": "event", "name": "Swap", "anonymous": false, "inputs": [
    {"name": "sender", "type": "address", "indexed": true},
    {"name": "recipient", "type": "address", "indexed": true},
    {"name": "amount0", "type": "int256", "indexed": false},
    {"name": "amount1", "type": "int256", "indexed": false},
    {"name": "sqrtPriceX96", "type": "uint160", "indexed": false},
    {"name": "liquidity", "type": "uint128", "indexed": false},
    {"name": "tick", "type": "int24", "indexed": false}]},
  {"type": "event", "name": "Mint", "anonymous": false, "inputs": [
    {"name": "sender", "type": "address", "indexed": false},
    {"name": "owner", "type": "address", "indexed": true},
    {"name": "tickLower", "type": "int24", "indexed": true},
    {"name": "tickUpper", "type": "int24", "indexed": true},
    {"name": "amount", "type": "uint128", "indexed": false},
    {"name": "amount0", "type": "uint256", "indexed": false},
    {"name": "amount1", "type": "uint256", "indexed": false}]},
  {"type": "event", "name": "Burn", "anonymous": false, "inputs": [
    {"name": "owner", "type": "address", "indexed": true},
    {"name": "tickLower", "type": "int24", "indexed": true},
    {"name": "tickUpper", "type": "int24", "indexed": true},
    {"name": "amount", "type": "uint128", "indexed": false},
    {"name": "amount0", "type": "uint256", "indexed": false},
    {"name": "amount1", "type": "uint256", "indexed": false}]},
  {"type": "event", "name": "Collect", "anonymous": false, "inputs": [
    {"name": "owner", "type": "address", "indexed": true},
    {"name": "recipient", "type": "address", "indexed": false},
    {"name": "tickLower", "type": "int24", "indexed": true},
    {"name": "tickUpper", "type": "int24", "indexed": true},
    {"name": "amount0", "type": "uint128", "indexed": false},
    {"name": "amount1", "type": "uint128", "indexed": false}]},
  {"type": "event", "name": "Flash", "anonymous": false, "inputs": [
    {"name": "sender", "type": "address", "indexed": true},
    {"name": "recipient", "type": "address", "indexed": true},
    {"name": "amount0", "type": "uint256", "indexed": false},
    {"name": "amount1", "type": "uint256", "indexed": false},
    {"name": "paid0", "type": "uint256", "indexed": false},
    {"name": "paid1", "type": "uint256", "indexed": false}]},
  {"type": "function", "name": "token0", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "address"}]},
  {"type": "function", "name": "token1", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "address"}]},
  {"type": "function", "name": "fee", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "uint24"}]},
  {"type": "function", "name": "tickSpacing", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "int24"}]},
  {"type": "function", "name": "liquidity", "stateMutability": "view", "inputs": [],
    "outputs": [{"name": "", "type": "uint128"}]},
  {"type": "function", "name": "slot0", "stateMutability": "view", "inputs": [], "outputs": [
    {"name": "sqrtPriceX96", "type": "uint160"},
    {"name": "tick", "type": "int24"},
    {"name": "observationIndex", "type": "uint16"},
    {"name": "observationCardinality", "type": "uint16"},
    {"name": "observationCardinalityNext", "type": "uint16"},
    {"name": "feeProtocol", "type": "uint8"},
    {"name": "unlocked", "type": "bool"}]}
]`
