package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/brojonat/coinguard/service/dataset"
	"github.com/brojonat/coinguard/service/infraction"
	"github.com/brojonat/coinguard/service/metrics"
	"github.com/brojonat/coinguard/service/validator"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	maxScriptLength    = 10_000 // consensus script size limit
	maxRedeemItems     = 10_000
)

var validTxIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

type infractionResponse struct {
	TxID          string `json:"txid"`
	Address       string `json:"address"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"display_amount"`
}

func infractionsToResponse(recs []infraction.Record) []infractionResponse {
	resp := make([]infractionResponse, len(recs))
	for i, r := range recs {
		resp[i] = infractionResponse{
			TxID:          r.TxID.String(),
			Address:       r.Address,
			Amount:        int64(r.Amount),
			DisplayAmount: infraction.FormatDisplayAmount(r.DisplayAmount),
		}
	}
	return resp
}

// handleCoinValidity returns a handler reporting whether coins created by a
// transaction may be spent.
// GET /api/v1/coins/{txid}
func handleCoinValidity(v *validator.Validator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txid, err := parseTxID(r.PathValue("txid"))
		if err != nil {
			logger.Debug("invalid txid", "txid", r.PathValue("txid"), "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, map[string]interface{}{
			"txid":  txid.String(),
			"valid": v.IsCoinValid(txid),
		}, http.StatusOK)
	})
}

// handleGetInfractions returns a handler listing the records of one
// transaction. An unflagged transaction yields an empty list, not a 404.
// GET /api/v1/infractions/{txid}
func handleGetInfractions(v *validator.Validator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txid, err := parseTxID(r.PathValue("txid"))
		if err != nil {
			logger.Debug("invalid txid", "txid", r.PathValue("txid"), "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		recs := v.GetInfractions(txid)
		logger.Debug("infractions retrieved", "txid", txid, "count", len(recs))

		writeJSON(w, map[string]interface{}{
			"txid":        txid.String(),
			"infractions": infractionsToResponse(recs),
		}, http.StatusOK)
	})
}

// handleListInfractionsByAddress returns a handler listing every record paid
// to an address, ordered by txid.
// GET /api/v1/infractions?address=ADDRESS
func handleListInfractionsByAddress(v *validator.Validator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")
		if address == "" {
			writeError(w, "address query parameter is required", http.StatusBadRequest)
			return
		}
		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		recs := v.GetInfractionsByAddress(address)
		logger.Debug("infractions by address retrieved", "address", address, "count", len(recs))

		writeJSON(w, map[string]interface{}{
			"address":     address,
			"infractions": infractionsToResponse(recs),
		}, http.StatusOK)
	})
}

type redeemInputRequest struct {
	TxID   string `json:"txid"`
	Script string `json:"script"` // hex
	Amount int64  `json:"amount"`
}

type redeemOutputRequest struct {
	Script string `json:"script"` // hex
	Amount int64  `json:"amount"`
}

type verdictResponse struct {
	Verified              bool   `json:"verified"`
	Reason                string `json:"reason"`
	TotalExploited        int64  `json:"total_exploited"`
	TotalRedeemed         int64  `json:"total_redeemed"`
	TotalExploitedDisplay string `json:"total_exploited_display"`
	Index                 int    `json:"index"`
}

// handleVerifyRedemption returns a handler checking that a spending
// transaction pays the flagged amount to the redemption address.
// POST /api/v1/redemptions/verify
func handleVerifyRedemption(v *validator.Validator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Exploited  []redeemInputRequest  `json:"exploited"`
			Recipients []redeemOutputRequest `json:"recipients"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode verify request", "error", err)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if len(req.Exploited) > maxRedeemItems || len(req.Recipients) > maxRedeemItems {
			writeError(w, fmt.Sprintf("too many inputs or outputs: maximum is %d", maxRedeemItems), http.StatusBadRequest)
			return
		}

		exploited := make([]validator.RedeemInput, len(req.Exploited))
		for i, in := range req.Exploited {
			txid, err := parseTxID(in.TxID)
			if err != nil {
				writeError(w, fmt.Sprintf("exploited[%d]: %v", i, err), http.StatusBadRequest)
				return
			}
			script, err := parseScript(in.Script)
			if err != nil {
				writeError(w, fmt.Sprintf("exploited[%d]: %v", i, err), http.StatusBadRequest)
				return
			}
			if in.Amount < 0 {
				writeError(w, fmt.Sprintf("exploited[%d]: amount cannot be negative", i), http.StatusBadRequest)
				return
			}
			exploited[i] = validator.RedeemInput{TxID: txid, Script: script, Amount: btcutil.Amount(in.Amount)}
		}

		recipients := make([]validator.RedeemOutput, len(req.Recipients))
		for i, out := range req.Recipients {
			script, err := parseScript(out.Script)
			if err != nil {
				writeError(w, fmt.Sprintf("recipients[%d]: %v", i, err), http.StatusBadRequest)
				return
			}
			if out.Amount < 0 {
				writeError(w, fmt.Sprintf("recipients[%d]: amount cannot be negative", i), http.StatusBadRequest)
				return
			}
			recipients[i] = validator.RedeemOutput{Script: script, Amount: btcutil.Amount(out.Amount)}
		}

		verdict := v.VerifyRedemption(exploited, recipients)

		writeJSON(w, verdictResponse{
			Verified:              verdict.Verified,
			Reason:                string(verdict.Reason),
			TotalExploited:        int64(verdict.TotalExploited),
			TotalRedeemed:         int64(verdict.TotalRedeemed),
			TotalExploitedDisplay: v.Network().FormatAmount(verdict.TotalExploited),
			Index:                 verdict.Index,
		}, http.StatusOK)
	})
}

type registryResponse struct {
	Network           string `json:"network"`
	RedemptionAddress string `json:"redemption_address"`
	Loaded            bool   `json:"loaded"`
	RequireLoaded     bool   `json:"require_loaded"`
	Records           int    `json:"records"`
	Transactions      int    `json:"transactions"`
}

func statusToResponse(s validator.Status) registryResponse {
	return registryResponse{
		Network:           s.Network,
		RedemptionAddress: s.RedemptionAddress,
		Loaded:            s.Loaded,
		RequireLoaded:     s.RequireLoaded,
		Records:           s.Records,
		Transactions:      s.Transactions,
	}
}

// handleRegistryStatus returns a handler describing the loaded registry.
// GET /api/v1/registry
func handleRegistryStatus(v *validator.Validator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statusToResponse(v.Status()), http.StatusOK)
	})
}

// handleReloadRegistry returns a handler that re-reads the dataset source and
// swaps the registry. A malformed dataset leaves the current one in place.
// POST /api/v1/registry/reload
func handleReloadRegistry(v *validator.Validator, source dataset.Source, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lines, err := dataset.Fetch(r.Context(), source, m)
		if err != nil {
			logger.Error("failed to fetch dataset", "source", source.Name(), "error", err)
			writeError(w, "failed to fetch dataset", http.StatusBadGateway)
			return
		}

		if err := v.Reload(lines); err != nil {
			logger.Error("rejected dataset reload", "source", source.Name(), "error", err)
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		writeJSON(w, statusToResponse(v.Status()), http.StatusOK)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}

// parseTxID accepts exactly 64 hex characters in display (byte-reversed)
// order. chainhash alone would zero-pad short input.
func parseTxID(s string) (chainhash.Hash, error) {
	if !validTxIDRegex.MatchString(s) {
		return chainhash.Hash{}, errorf("invalid txid: must be 64 hex characters")
	}
	h, err := chainhash.NewHashFromStr(strings.ToLower(s))
	if err != nil {
		return chainhash.Hash{}, errorf("invalid txid: %v", err)
	}
	return *h, nil
}

func parseScript(s string) ([]byte, error) {
	if len(s) > 2*maxScriptLength {
		return nil, errorf("script too long: maximum is %d bytes", maxScriptLength)
	}
	script, err := hex.DecodeString(s)
	if err != nil {
		return nil, errorf("invalid script: must be hex encoded")
	}
	return script, nil
}

// validateAddress accepts exactly the addresses a dataset record can carry.
// Network membership is not checked: registry addresses are matched as text.
func validateAddress(address string) error {
	if err := infraction.ValidateAddress(address); err != nil {
		return errorf("invalid address: %v", err)
	}
	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
