package importer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"
	"github.com/2beens/workoutcompanion/pkg"

	log "github.com/sirupsen/logrus"
)

type Handler struct {
	importer *Importer
	userID   string
}

func NewHandler(importer *Importer, userID string) *Handler {
	return &Handler{
		importer: importer,
		userID:   userID,
	}
}

func (handler *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.importer.import")
	defer span.End()

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/csv") && !strings.HasPrefix(contentType, "text/plain") {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	result, err := handler.importer.ImportCSV(ctx, handler.userID, r.Body)
	if err != nil {
		if errors.Is(err, ErrEmptyImport) {
			http.Error(w, "error, nothing to import", http.StatusBadRequest)
			return
		}
		log.Errorf("import failed: %s", err)
		http.Error(w, "error, import failed", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal import result: %s", err)
		http.Error(w, "error, import failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resultJson)
}
