package sender

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/rs/zerolog"
)

// record is the response shared by the executor, the body stream and the
// cancellation path. Once closed it refuses further mutation.
type record struct {
	mu      sync.Mutex
	resp    models.HttpResponse
	version uint64

	// persistMu orders store writes so a stale snapshot never overwrites a
	// newer one.
	persistMu sync.Mutex
	persisted uint64
}

func newRecord(resp models.HttpResponse) *record {
	return &record{resp: resp, version: 1}
}

// update applies fn unless the record is closed and reports whether it did.
func (r *record) update(fn func(*models.HttpResponse)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resp.State == models.ResponseClosed {
		return false
	}
	fn(&r.resp)
	r.version++
	return true
}

// close applies fn and marks the record closed. Only the first close wins.
func (r *record) close(fn func(*models.HttpResponse)) bool {
	return r.update(func(resp *models.HttpResponse) {
		if fn != nil {
			fn(resp)
		}
		resp.State = models.ResponseClosed
	})
}

// fail closes the record with msg unless an error is already recorded.
func (r *record) fail(msg string, fn func(*models.HttpResponse)) bool {
	return r.close(func(resp *models.HttpResponse) {
		if fn != nil {
			fn(resp)
		}
		if resp.Error == "" {
			resp.Error = msg
		}
	})
}

func (r *record) snapshot() (models.HttpResponse, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp := r.resp
	if resp.ContentLength != nil {
		n := *resp.ContentLength
		resp.ContentLength = &n
	}
	resp.Headers = append([]models.HttpResponseHeader(nil), resp.Headers...)
	resp.RequestHeaders = append([]models.HttpResponseHeader(nil), resp.RequestHeaders...)
	return resp, r.version
}

func (r *record) closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resp.State == models.ResponseClosed
}

type updater interface {
	UpdateHttpResponseIfID(ctx context.Context, resp models.HttpResponse) (models.HttpResponse, error)
}

// persist writes the current snapshot unless a newer one is already stored.
func (r *record) persist(ctx context.Context, store updater, logger zerolog.Logger) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	snap, version := r.snapshot()
	if version <= r.persisted {
		return
	}
	if _, err := store.UpdateHttpResponseIfID(ctx, snap); err != nil {
		logger.Warn().Err(err).Str("state", string(snap.State)).Msg("failed to persist response")
		return
	}
	r.persisted = version
}
