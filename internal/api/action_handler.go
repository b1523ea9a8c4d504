package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shaiso/Feedactions/internal/catalog"
	"github.com/shaiso/Feedactions/internal/dispatch"
	"github.com/shaiso/Feedactions/internal/domain"
	"github.com/shaiso/Feedactions/internal/repo"
)

// PushAction принимает запрос на действие.
// POST /api/v1/actions
func (h *Handler) PushAction(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	h.dispatch(w, r, req)
}

// FollowLink принимает запрос по подписанной ссылке из ленты.
// GET /api/v1/actions/link?a=...&url=...&s=...
func (h *Handler) FollowLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.dispatch(w, r, dispatch.Request{
		Action:    q.Get("a"),
		URL:       q.Get("url"),
		Signature: q.Get("s"),
	})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, req dispatch.Request) {
	accepted, err := h.dispatcher.Dispatch(r.Context(), req)
	if HandleDispatchError(w, h.logger, err) {
		return
	}
	Accepted(w, accepted)
}

// GetStats возвращает статистику пула.
// GET /api/v1/actions/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	Success(w, h.stats.Statistic())
}

// ListHistory возвращает записи журнала.
// GET /api/v1/actions/history?status=...&name=...&limit=...&offset=...
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is not configured")
		return
	}

	q := r.URL.Query()
	filter := repo.OutcomeFilter{
		Status: domain.ActionStatus(q.Get("status")),
		Name:   q.Get("name"),
	}

	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(w, "invalid "+key)
			return
		}
		*dst = n
	}

	records, err := h.history.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err) {
		return
	}
	List(w, records, len(records))
}

// ListCatalog возвращает доступные действия.
// GET /api/v1/actions/catalog
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	defs := h.dispatcher.Catalog().List()
	items := make([]CatalogItem, len(defs))
	for i, d := range defs {
		items[i] = catalogItem(d)
	}
	List(w, items, len(items))
}

// CatalogItem — действие каталога в ответе API.
type CatalogItem struct {
	Name  string       `json:"name"`
	Title string       `json:"title"`
	Kind  catalog.Kind `json:"kind"`
}

func catalogItem(d catalog.Definition) CatalogItem {
	return CatalogItem{Name: d.Name, Title: d.Title, Kind: d.Kind}
}
