// internal/swap/types.go
package swap

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// WrappedSolMint is the settlement asset: positions are bought with it and
// sold back into it.
const WrappedSolMint = "So11111111111111111111111111111111111111112"

// SolToLamports converts a SOL amount to lamports.
func SolToLamports(sol float64) uint64 {
	return uint64(sol * float64(solana.LAMPORTS_PER_SOL))
}

// ErrNoRoute signals the routing service returned no viable route for the
// requested pair and amount.
var ErrNoRoute = errors.New("swap: no route available")

// SubmissionError wraps a failure after a route was chosen: building,
// signing, sending or confirming the transaction.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("swap submission failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// routeQuote is one candidate route. The raw JSON is kept verbatim so the
// chosen route can be echoed back to the swap endpoint unchanged.
type routeQuote struct {
	OutAmount string
	Raw       json.RawMessage
}

func (r *routeQuote) UnmarshalJSON(data []byte) error {
	var head struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	r.OutAmount = head.OutAmount
	r.Raw = append([]byte(nil), data...)
	return nil
}

type quoteResponse struct {
	Routes []routeQuote `json:"routes"`
}

type swapRequest struct {
	Route         json.RawMessage `json:"route"`
	UserPublicKey string          `json:"userPublicKey"`
	WrapUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}
