// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/store"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already encoded body, such as a cached snapshot.
func writeRawJSON(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// writeStoreError reports a failed store call. The store's status is kept
// when it has one; otherwise the code decides.
func writeStoreError(w http.ResponseWriter, err error) {
	re, ok := store.AsRemoteError(err)
	if !ok {
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	details := map[string]string{}
	if re.Code != "" {
		details["store_code"] = re.Code
	}
	if re.Details != "" {
		details["details"] = re.Details
	}
	if re.Hint != "" {
		details["hint"] = re.Hint
	}
	if len(details) == 0 {
		details = nil
	}

	msg := re.Message
	if msg == "" && re.Err != nil {
		msg = re.Err.Error()
	}
	middleware.WriteAPIError(w, remoteStatus(re), "store_error", msg, details)
}

func remoteStatus(re *store.RemoteError) int {
	if re.Code == store.CodeNoRows {
		return http.StatusNotFound
	}
	if re.Status >= 400 {
		return re.Status
	}
	switch re.Code {
	case store.CodeNotConfigured, store.CodeTransport:
		return http.StatusBadGateway
	case store.CodeForeignKey:
		return http.StatusConflict
	case store.CodeNoRelationship, store.CodeUnknownColumn, store.CodeUndefinedColumn,
		store.CodeUndefinedTable, store.CodeNotNull, store.CodeInvalidInput, store.CodeBadRequest:
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
