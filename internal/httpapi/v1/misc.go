package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/category"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	if err := s.ready.Ready(ctx); err != nil {
		s.log.Warn("not ready", "err", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) postCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.categories.Create(r.Context(), userFrom(r), category.CreateInput{
		Name:        req.Name,
		Kind:        req.Type,
		Color:       req.Color,
		Description: req.Description,
		ParentID:    req.ParentID,
		Active:      req.IsActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toCategoryResponse(c))
}

func categoryKindParam(r *http.Request) (ledger.CategoryKind, error) {
	kind := ledger.CategoryKind(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		return "", errs.Field("type", "must be income, expense or both")
	}
	return kind, nil
}

// listCategories handles GET /v1/categories?type=income|expense|both.
// Categories of type both are listed under either kind.
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := categoryKindParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	list, err := s.categories.List(r.Context(), userFrom(r), kind)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toCategoryList(list))
}

// listParentCategories handles GET /v1/categories/parents: active categories
// without a parent, for building a picker.
func (s *Server) listParentCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := categoryKindParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	list, err := s.categories.Parents(r.Context(), userFrom(r), kind)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toCategoryList(list))
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	c, err := s.categories.Get(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) patchCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req categoryPatchRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.categories.Update(r.Context(), userFrom(r), id, category.UpdateInput{
		Name:        req.Name,
		Kind:        req.Type,
		Color:       req.Color,
		Description: req.Description,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		Active:      req.IsActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toCategoryResponse(c))
}

// deleteCategory handles DELETE /v1/categories/{id}. A category still used by
// records or subcategories answers 409.
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.categories.Delete(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getDashboard handles GET /v1/dashboard. Without from/to it covers the
// current month up to today.
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryWindow(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	today := ledger.Day(time.Now())
	if to == nil {
		to = &today
	}
	if from == nil {
		first := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
		from = &first
	}
	o, err := s.dashboard.Overview(r.Context(), userFrom(r), curr, *from, *to)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toDashboardResponse(curr, o))
}
