package contract

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const abiGenDummyJSON = `[
  {"inputs": [], "name": "simplePureFunction", "outputs": [{"name": "result", "type": "uint256"}], "stateMutability": "pure", "type": "function"},
  {"inputs": [{"name": "index_0", "type": "uint256"}], "name": "simpleInputSimpleOutput", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "pure", "type": "function"},
  {"inputs": [], "name": "simpleRevert", "outputs": [], "stateMutability": "pure", "type": "function"},
  {"inputs": [], "name": "revertWithConstant", "outputs": [], "stateMutability": "pure", "type": "function"},
  {"inputs": [], "name": "simpleRequire", "outputs": [], "stateMutability": "pure", "type": "function"},
  {"inputs": [], "name": "requireWithConstant", "outputs": [], "stateMutability": "pure", "type": "function"},
  {"inputs": [], "name": "structOutput", "outputs": [{"components": [
      {"name": "someBytes", "type": "bytes"},
      {"name": "anInteger", "type": "uint32"},
      {"name": "aDynamicArrayOfBytes", "type": "bytes[]"},
      {"name": "aString", "type": "string"}
    ], "name": "s", "type": "tuple"}], "stateMutability": "pure", "type": "function"},
  {"inputs": [
      {"name": "index_0", "type": "uint256"},
      {"name": "index_1", "type": "bytes"},
      {"name": "index_2", "type": "string"}
    ], "name": "multiInputMultiOutput", "outputs": [
      {"name": "", "type": "bytes"},
      {"name": "", "type": "bytes"},
      {"name": "", "type": "string"}
    ], "stateMutability": "pure", "type": "function"},
  {"inputs": [
      {"name": "x", "type": "address"},
      {"name": "a", "type": "uint256"},
      {"name": "b", "type": "uint256"},
      {"name": "y", "type": "address"},
      {"name": "c", "type": "uint256"}
    ], "name": "withAddressInput", "outputs": [{"name": "z", "type": "address"}], "stateMutability": "pure", "type": "function"},
  {"inputs": [{"name": "a", "type": "int256"}], "name": "overloadedMethod", "outputs": [], "stateMutability": "pure", "type": "function"},
  {"inputs": [{"name": "a", "type": "string"}], "name": "overloadedMethod", "outputs": [], "stateMutability": "pure", "type": "function"},
  {"inputs": [
      {"name": "hash", "type": "bytes32"},
      {"name": "v", "type": "uint8"},
      {"name": "r", "type": "bytes32"},
      {"name": "s", "type": "bytes32"}
    ], "name": "ecrecoverFn", "outputs": [{"name": "signerAddress", "type": "address"}], "stateMutability": "pure", "type": "function"},
  {"inputs": [{"name": "wad", "type": "uint256"}], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "emitSimpleEvent", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"anonymous": false, "inputs": [
      {"indexed": true, "name": "_owner", "type": "address"},
      {"indexed": false, "name": "_value", "type": "uint256"}
    ], "name": "Withdrawal", "type": "event"},
  {"anonymous": false, "inputs": [
      {"indexed": false, "name": "someBytes", "type": "bytes"},
      {"indexed": false, "name": "someString", "type": "string"}
    ], "name": "SimpleEvent", "type": "event"}
]`

var (
	dummyIface     *Interface
	dummyIfaceOnce sync.Once
	dummyIfaceErr  error
)

func abiGenDummy(t *testing.T) *Interface {
	t.Helper()
	dummyIfaceOnce.Do(func() {
		dummyIface, dummyIfaceErr = ParseJSON(strings.NewReader(abiGenDummyJSON))
	})
	require.NoError(t, dummyIfaceErr)
	return dummyIface
}
