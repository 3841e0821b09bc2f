// Package signer implements the EIP-712 "phantom-agent" signature scheme
// (§4.3) the exchange requires over every action. It is grounded on the
// secp256k1/Keccak plumbing in
// _examples/uhyunpark-hyperlicked/pkg/crypto/{signer,eip712}.go, adapted
// from that repo's generic Order/Cancel typed-data hash to the exchange's
// fixed phantom-agent envelope, which never varies its message shape.
package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"hlconnector/internal/hlerrors"
)

var (
	agentTypeHash  = crypto.Keccak256([]byte("Agent(string source,bytes32 connectionId)"))
	domainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	nameHash       = crypto.Keccak256([]byte("Exchange"))
	versionHash    = crypto.Keccak256([]byte("1"))
	chainID1337    = math.U256Bytes(big.NewInt(1337))
	zeroAddress    [32]byte // left-padded zero verifyingContract
)

// Signature is the (r, s, v) triple the HTTP layer embeds in the request
// body (§4.5), hex-encoded with a "0x" prefix for r and s.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// Signer owns a secp256k1 private key and signs phantom-agent envelopes
// over already-encoded actions. Constructed lazily by the connector on
// the first signing-required call (§3: "Signer... lazily constructed").
type Signer struct {
	mu         sync.Mutex
	privateKey *ecdsa.PrivateKey
	address    common.Address
	addressHex string

	lastNonce int64
}

// New constructs a Signer from a hex-encoded private key, with or without
// a "0x" prefix. Returns hlerrors.ErrInvalidPrivateKey on a malformed key.
func New(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hlerrors.ErrInvalidPrivateKey, err)
	}
	addr := crypto.PubkeyToAddress(pk.PublicKey)
	return &Signer{
		privateKey: pk,
		address:    addr,
		addressHex: strings.ToLower(addr.Hex()),
	}, nil
}

// Address returns the cached lowercase-hex "0x..." address.
func (s *Signer) Address() string {
	return s.addressHex
}

// NextNonce returns a strictly increasing nonce: max(now_millis,
// previous+1) (§3). Safe for concurrent use.
func (s *Signer) NextNonce(nowMillis int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := nowMillis
	if s.lastNonce >= n {
		n = s.lastNonce + 1
	}
	s.lastNonce = n
	return uint64(n)
}

// SignAction builds the phantom-agent digest over actionBytes and signs
// it, following §4.3 steps 1-9. source must be "a" (mainnet) or "b"
// (testnet); vaultFlag is always 0x00 in this implementation (no vault
// support).
func (s *Signer) SignAction(actionBytes []byte, nonce uint64, source string) (Signature, error) {
	digest := s.phantomAgentDigest(actionBytes, nonce, source)

	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("signer: sign: %w", err)
	}

	v := sig[64] + 27

	s.verifyRecovery(digest, sig)

	return Signature{
		R: "0x" + hex.EncodeToString(sig[:32]),
		S: "0x" + hex.EncodeToString(sig[32:64]),
		V: v,
	}, nil
}

// phantomAgentDigest implements §4.3 steps 1-8.
func (s *Signer) phantomAgentDigest(actionBytes []byte, nonce uint64, source string) []byte {
	buf := make([]byte, 0, len(actionBytes)+9)
	buf = append(buf, actionBytes...)
	buf = append(buf, byte(nonce>>56), byte(nonce>>48), byte(nonce>>40), byte(nonce>>32),
		byte(nonce>>24), byte(nonce>>16), byte(nonce>>8), byte(nonce))
	buf = append(buf, 0x00) // vault flag: no vault

	connectionID := crypto.Keccak256(buf)
	sourceHash := crypto.Keccak256([]byte(source))

	agentHash := crypto.Keccak256(agentTypeHash, sourceHash, connectionID)

	domainHash := crypto.Keccak256(
		domainTypeHash,
		nameHash,
		versionHash,
		chainID1337,
		zeroAddress[:],
	)

	return crypto.Keccak256([]byte{0x19, 0x01}, domainHash, agentHash)
}

// verifyRecovery is a diagnostic only: it never fails the call, it only
// logs a warning when the recovered address disagrees with the cached
// signer address, which would indicate a serialization bug upstream
// (§4.3: "the signature will still be transmitted").
func (s *Signer) verifyRecovery(digest, sig []byte) {
	pub, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		slog.Warn("signer: local recovery failed", "error", err)
		return
	}
	pubKey, err := crypto.UnmarshalPubkey(pub)
	if err != nil {
		slog.Warn("signer: recovered pubkey unmarshal failed", "error", err)
		return
	}
	recovered := crypto.PubkeyToAddress(*pubKey)
	if !strings.EqualFold(recovered.Hex(), s.address.Hex()) {
		slog.Warn("signer: recovered address does not match cached signer address",
			"recovered", recovered.Hex(), "expected", s.address.Hex())
	}
}
