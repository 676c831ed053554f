package handlers

import (
	"net/http"

	"github.com/vango-go/vai-talk/pkg/core"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, core.NewNotFoundError("not found"))
}
