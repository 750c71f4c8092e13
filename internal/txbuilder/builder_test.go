package txbuilder

import (
	"bytes"
	"context"
	"testing"

	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// sequenceAnchors returns a new blockhash on every call.
type sequenceAnchors struct {
	calls int
}

func (s *sequenceAnchors) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	s.calls++
	var h [32]byte
	h[0] = byte(s.calls)
	h[31] = 0xAA
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.HashFromBytes(h[:]), LastValidBlockHeight: 100}}, nil
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return key
}

func newBuilder(t *testing.T, anchors AnchorSource) (*Builder, solana.PublicKey) {
	t.Helper()
	treasury := newKey(t).PublicKey()
	b, err := NewBuilder(anchors, treasury.String())
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return b, treasury
}

// foreignTransaction builds an unsigned transaction the way an order API would.
func foreignTransaction(t *testing.T, payer solana.PublicKey, version solana.MessageVersion) []byte {
	t.Helper()
	var h [32]byte
	h[5] = 9
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(5, payer, newKey(t).PublicKey()).Build()},
		solana.HashFromBytes(h[:]),
		solana.TransactionPayer(payer),
	)
	if err != nil {
		t.Fatalf("NewTransaction failed: %v", err)
	}
	tx.Message.SetVersion(version)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	return raw
}

func TestBuildTransfer(t *testing.T) {
	b, treasury := newBuilder(t, &sequenceAnchors{})
	from := newKey(t).PublicKey()

	u, err := b.BuildTransfer(context.Background(), from, 1_000_000)
	if err != nil {
		t.Fatalf("BuildTransfer failed: %v", err)
	}
	if u.FeePayer != from {
		t.Errorf("Expected fee payer %s, got %s", from, u.FeePayer)
	}
	if u.Tx.Message.AccountKeys[0] != from {
		t.Errorf("Expected caller to be the first account, got %s", u.Tx.Message.AccountKeys[0])
	}
	if ok, _ := u.Tx.HasAccount(treasury); !ok {
		t.Errorf("Expected treasury %s in account keys", treasury)
	}
	if u.Tx.Message.RecentBlockhash != u.Anchor {
		t.Errorf("Expected message anchor to equal %s", u.Anchor)
	}
	if len(u.Tx.Signatures) != 1 || !u.Tx.Signatures[0].IsZero() {
		t.Errorf("Expected one empty signature slot, got %d", len(u.Tx.Signatures))
	}
	if u.Origin != OriginLocal {
		t.Errorf("Expected local origin, got %s", u.Origin)
	}
}

func TestBuildTransferFetchesFreshAnchor(t *testing.T) {
	anchors := &sequenceAnchors{}
	b, _ := newBuilder(t, anchors)
	from := newKey(t).PublicKey()

	seen := make(map[solana.Hash]bool)
	for i := 0; i < 5; i++ {
		u, err := b.BuildTransfer(context.Background(), from, 10)
		if err != nil {
			t.Fatalf("BuildTransfer failed: %v", err)
		}
		if seen[u.Anchor] {
			t.Fatalf("Anchor %s reused on build %d", u.Anchor, i)
		}
		seen[u.Anchor] = true
	}
	if anchors.calls != 5 {
		t.Errorf("Expected one anchor fetch per build, got %d", anchors.calls)
	}
}

func TestBuildTransferIsDeterministic(t *testing.T) {
	var h [32]byte
	h[0] = 1
	fixed := fixedAnchor(solana.HashFromBytes(h[:]))
	b, _ := newBuilder(t, fixed)
	from := newKey(t).PublicKey()

	first, _ := b.BuildTransfer(context.Background(), from, 77)
	second, _ := b.BuildTransfer(context.Background(), from, 77)
	a, _ := first.Bytes()
	c, _ := second.Bytes()
	if !bytes.Equal(a, c) {
		t.Errorf("Expected identical bytes for identical inputs")
	}
}

type fixedAnchor solana.Hash

func (f fixedAnchor) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash(f)}}, nil
}

func TestBuildTransferRejectsZero(t *testing.T) {
	b, _ := newBuilder(t, &sequenceAnchors{})
	_, err := b.BuildTransfer(context.Background(), newKey(t).PublicKey(), 0)
	if !txerrors.IsKind(err, txerrors.KindValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestAdoptBothShapes(t *testing.T) {
	payer := newKey(t).PublicKey()

	for _, version := range []solana.MessageVersion{solana.MessageVersionLegacy, solana.MessageVersionV0} {
		raw := foreignTransaction(t, payer, version)
		u, err := Adopt(raw, OriginAggregator)
		if err != nil {
			t.Fatalf("Adopt(version %d) failed: %v", version, err)
		}
		if u.Versioned() != (version == solana.MessageVersionV0) {
			t.Errorf("Expected versioned=%v", version == solana.MessageVersionV0)
		}
		if u.FeePayer != payer {
			t.Errorf("Expected fee payer %s, got %s", payer, u.FeePayer)
		}
		got, _ := u.Bytes()
		if !bytes.Equal(got, raw) {
			t.Errorf("Adopted transaction bytes changed for version %d", version)
		}
	}
}

func TestAdoptMalformed(t *testing.T) {
	payer := newKey(t).PublicKey()
	valid := foreignTransaction(t, payer, solana.MessageVersionLegacy)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0x01, 0x02, 0x03}},
		{"trailing bytes", append(append([]byte(nil), valid...), 0x00)},
		{"truncated", valid[:len(valid)-4]},
		{"oversized", make([]byte, 1233)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Adopt(tt.raw, OriginAggregator)
			if !txerrors.IsKind(err, txerrors.KindMalformedTransaction) {
				t.Errorf("Expected malformed transaction error, got %v", err)
			}
		})
	}

	if _, err := AdoptBase64("%%%", OriginMinter); !txerrors.IsKind(err, txerrors.KindMalformedTransaction) {
		t.Errorf("Expected malformed transaction error for bad base64, got %v", err)
	}
}

func TestRestamp(t *testing.T) {
	anchors := &sequenceAnchors{}
	b, _ := newBuilder(t, anchors)
	payer := newKey(t).PublicKey()

	u, err := Adopt(foreignTransaction(t, payer, solana.MessageVersionLegacy), OriginCaller)
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}
	before := u.Anchor
	if err := b.Restamp(context.Background(), u); err != nil {
		t.Fatalf("Restamp failed: %v", err)
	}
	if u.Anchor == before || u.Tx.Message.RecentBlockhash != u.Anchor {
		t.Errorf("Expected a new anchor, got %s", u.Anchor)
	}
	raw, _ := u.Bytes()
	again, err := Adopt(raw, OriginCaller)
	if err != nil {
		t.Fatalf("Re-adopting restamped transaction failed: %v", err)
	}
	if again.Anchor != u.Anchor {
		t.Errorf("Expected serialized anchor %s, got %s", u.Anchor, again.Anchor)
	}

	agg, _ := Adopt(foreignTransaction(t, payer, solana.MessageVersionV0), OriginAggregator)
	if err := b.Restamp(context.Background(), agg); err == nil {
		t.Errorf("Expected aggregator transactions to be refused")
	}
}

func TestAttachSignature(t *testing.T) {
	key := newKey(t)
	u, err := Adopt(foreignTransaction(t, key.PublicKey(), solana.MessageVersionV0), OriginAggregator)
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}

	msg, err := u.MessageBytes()
	if err != nil {
		t.Fatalf("MessageBytes failed: %v", err)
	}
	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	signed, err := u.AttachSignature(sig)
	if err != nil {
		t.Fatalf("AttachSignature failed: %v", err)
	}
	tx, err := u.VerifySigned(signed)
	if err != nil {
		t.Fatalf("VerifySigned failed: %v", err)
	}
	if tx.Signatures[0] != sig {
		t.Errorf("Expected fee payer signature %s, got %s", sig, tx.Signatures[0])
	}

	other := newKey(t)
	bad, _ := other.Sign(msg)
	if _, err := u.AttachSignature(bad); !txerrors.IsKind(err, txerrors.KindMalformedTransaction) {
		t.Errorf("Expected signature from another key to be refused, got %v", err)
	}
}

func TestVerifySignedRejectsDifferentMessage(t *testing.T) {
	key := newKey(t)
	u, _ := Adopt(foreignTransaction(t, key.PublicKey(), solana.MessageVersionLegacy), OriginAggregator)

	otherRaw := foreignTransaction(t, key.PublicKey(), solana.MessageVersionLegacy)
	other, _ := Adopt(otherRaw, OriginAggregator)
	msg, _ := other.MessageBytes()
	sig, _ := key.Sign(msg)
	signedOther, err := other.AttachSignature(sig)
	if err != nil {
		t.Fatalf("AttachSignature failed: %v", err)
	}

	if _, err := u.VerifySigned(signedOther); !txerrors.IsKind(err, txerrors.KindMalformedTransaction) {
		t.Errorf("Expected mismatch to be refused, got %v", err)
	}
	unsigned, _ := u.Bytes()
	if _, err := u.VerifySigned(unsigned); !txerrors.IsKind(err, txerrors.KindMalformedTransaction) {
		t.Errorf("Expected unsigned transaction to be refused, got %v", err)
	}
}
