package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vango-go/vai-talk/pkg/gateway/apierror"
	"github.com/vango-go/vai-talk/pkg/gateway/mw"
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	env, status := apierror.FromError(err, reqID)
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
