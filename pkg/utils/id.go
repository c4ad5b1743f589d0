package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

const QRCodePrefix = "CARNIVAL-"

// NewQRCode returns the payload printed on a user's token QR card.
func NewQRCode() string {
	return QRCodePrefix + ksuid.New().String()
}

// ReceiptGenerator hands out time-ordered receipt references for token
// transactions. References sort lexically in issue order.
type ReceiptGenerator struct {
	node *snowflake.Node
}

func NewReceiptGenerator(nodeID int64) (*ReceiptGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &ReceiptGenerator{node: node}, nil
}

func (g *ReceiptGenerator) Next() string {
	return "TX" + g.node.Generate().String()
}

const StallQRCodePrefix = "STALL-"

// NewStallQRCode returns the payload printed on a stall's QR poster.
func NewStallQRCode() string {
	return StallQRCodePrefix + ksuid.New().String()
}

// shortCodeAlphabet leaves out characters that are easy to misread.
const shortCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const shortCodeLen = 5

// NewShortCode returns a code visitors can type instead of scanning.
func NewShortCode() string {
	return randomString(shortCodeAlphabet, shortCodeLen)
}

// NewInviteToken returns an unguessable invite token.
func NewInviteToken() string {
	return ksuid.New().String()
}

// NewAdminCode returns a six digit one-time code.
func NewAdminCode() string {
	return randomString("0123456789", 6)
}

func randomString(alphabet string, n int) string {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		out[i] = alphabet[v.Int64()]
	}
	return string(out)
}
