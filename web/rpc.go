package web

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/getlantern/uuid"
	"github.com/getlantern/vizdb"
	"github.com/getlantern/vizdb/metrics"
	"github.com/gorilla/mux"
)

// ndjsonSession streams reply frames as newline-delimited JSON, flushing
// after every frame so clients see partial results as they arrive.
type ndjsonSession struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func (s *ndjsonSession) Send(reply *vizdb.Reply) error {
	if err := s.enc.Encode(reply); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (h *handler) runOperation(resp http.ResponseWriter, req *http.Request) {
	if !h.authenticate(resp, req) {
		return
	}
	vars := mux.Vars(req)

	args, err := ioutil.ReadAll(req.Body)
	if err != nil {
		resp.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(resp, "Unable to read arguments: %v", err)
		return
	}
	requestID := req.Header.Get("X-Vizdb-Request-Id")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	rpcReq := &vizdb.Request{
		RequestID: requestID,
		ObjectID:  vars["object"],
		Operation: vars["operation"],
		Args:      args,
	}

	resp.Header().Set("Content-Type", "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)
	flusher, _ := resp.(http.Flusher)
	sess := &ndjsonSession{enc: json.NewEncoder(resp), flusher: flusher}
	// Terminal frames travel in-stream; the error return is only logged.
	if err := h.reg.Dispatch(req.Context(), rpcReq, sess); err != nil {
		log.Debugf("Request %v on %v terminated: %v", requestID, rpcReq.ObjectID, err)
	}
}

func (h *handler) cancel(resp http.ResponseWriter, req *http.Request) {
	if !h.authenticate(resp, req) {
		return
	}
	objectID := mux.Vars(req)["object"]
	if err := h.reg.Cancel(objectID); err != nil {
		resp.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(resp, "Unable to cancel: %v", err)
		return
	}
	resp.WriteHeader(http.StatusOK)
}

func (h *handler) evict(resp http.ResponseWriter, req *http.Request) {
	if !h.authenticate(resp, req) {
		return
	}
	objectID := mux.Vars(req)["object"]
	if err := h.reg.Evict(objectID); err != nil {
		resp.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(resp, "Unable to evict: %v", err)
		return
	}
	resp.WriteHeader(http.StatusOK)
}

func (h *handler) metrics(resp http.ResponseWriter, req *http.Request) {
	if !h.authenticate(resp, req) {
		return
	}
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(resp).Encode(metrics.GetStats()); err != nil {
		log.Errorf("Unable to encode stats: %v", err)
	}
}
