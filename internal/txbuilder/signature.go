package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// splitWire returns the offset of the first signature and of the message in
// a serialized transaction.
func splitWire(raw []byte) (sigStart, msgStart, count int, err error) {
	count, size, err := bin.DecodeCompactU16(raw)
	if err != nil {
		return 0, 0, 0, err
	}
	msgStart = size + count*solana.SignatureLength
	if msgStart > len(raw) {
		return 0, 0, 0, fmt.Errorf("signature section exceeds transaction length")
	}
	return size, msgStart, count, nil
}

// MessageBytes returns the exact bytes a signer signs.
func (u *Unsigned) MessageBytes() ([]byte, error) {
	raw, err := u.Bytes()
	if err != nil {
		return nil, err
	}
	_, msgStart, _, err := splitWire(raw)
	if err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, "txbuilder.MessageBytes", "invalid wire format", err)
	}
	return raw[msgStart:], nil
}

// AttachSignature places a detached fee payer signature into its slot and
// returns the signed wire bytes. The signature must verify against the
// message that was sent for signing.
func (u *Unsigned) AttachSignature(sig solana.Signature) ([]byte, error) {
	const op = "txbuilder.AttachSignature"

	raw, err := u.Bytes()
	if err != nil {
		return nil, err
	}
	sigStart, msgStart, count, err := splitWire(raw)
	if err != nil || count == 0 {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, op, "transaction has no signature slots", err)
	}
	if !sig.Verify(u.FeePayer, raw[msgStart:]) {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "signature does not verify for the fee payer")
	}

	copy(raw[sigStart:sigStart+solana.SignatureLength], sig[:])
	u.Tx.Signatures[0] = sig
	return raw, nil
}

// VerifySigned checks that a signer-returned transaction is the transaction
// that was sent, now carrying a valid fee payer signature.
func (u *Unsigned) VerifySigned(signed []byte) (*solana.Transaction, error) {
	const op = "txbuilder.VerifySigned"

	tx, err := parse(op, signed)
	if err != nil {
		return nil, err
	}
	want, err := u.MessageBytes()
	if err != nil {
		return nil, err
	}
	_, msgStart, _, err := splitWire(signed)
	if err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, op, "invalid wire format", err)
	}
	if !bytes.Equal(signed[msgStart:], want) {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "signed transaction does not match the transaction sent for signing")
	}
	if len(tx.Signatures) == 0 || tx.Signatures[0].IsZero() {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "fee payer signature missing")
	}
	if !tx.Signatures[0].Verify(u.FeePayer, want) {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "fee payer signature does not verify")
	}
	return tx, nil
}
