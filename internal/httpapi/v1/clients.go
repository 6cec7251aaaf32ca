package v1

import (
	"net/http"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/client"
	"github.com/tinoosan/finledger/internal/storage"
)

func toClientInput(req clientRequest) client.Input {
	return client.Input{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Company: req.Company,
		Notes:   req.Notes,
		Status:  req.Status,
	}
}

func (s *Server) postClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.clients.Create(r.Context(), userFrom(r), toClientInput(req))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toClientResponse(c))
}

// listClients handles GET /v1/clients?search=&status=, sorted by name.
func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.clients.List(r.Context(), userFrom(r), storage.ClientFilter{
		Status: ledger.ClientStatus(q.Get("status")),
		Search: q.Get("search"),
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]clientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toClientResponse(c))
	}
	toJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	c, err := s.clients.Get(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toClientResponse(c))
}

func (s *Server) putClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req clientRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.clients.Update(r.Context(), userFrom(r), id, toClientInput(req))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toClientResponse(c))
}

// deleteClient handles DELETE /v1/clients/{id}. A client with incomes answers 409.
func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.clients.Delete(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
