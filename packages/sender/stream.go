package sender

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	hhttp "github.com/abdul-hamid-achik/hitsend/packages/http"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// progressInterval throttles per-chunk debug logging.
const progressInterval = time.Second

// stream copies the body to bodyPath chunk by chunk, persisting progress
// after each chunk, and closes the record when the body ends. It stops
// without closing when ctx is cancelled or the record was closed elsewhere.
func (s *Sender) stream(ctx, storeCtx context.Context, rec *record, resp *hhttp.Response, bodyPath string, started time.Time, log zerolog.Logger) {
	file, err := os.Create(bodyPath)
	if err != nil {
		rec.fail(wrap(ErrStream, err).Error(), nil)
		rec.persist(storeCtx, s.store, log)
		return
	}
	defer file.Close()

	progress := rate.Sometimes{Interval: progressInterval}
	buf := make([]byte, s.chunkSize)
	var written int64

	for {
		if ctx.Err() != nil || rec.closed() {
			return
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if ctx.Err() != nil {
				return
			}
			if _, err := file.Write(buf[:n]); err != nil {
				rec.fail(wrap(ErrStream, err).Error(), nil)
				rec.persist(storeCtx, s.store, log)
				return
			}
			written += int64(n)
			total := written
			elapsed := time.Since(started).Milliseconds()
			if !rec.update(func(r *models.HttpResponse) {
				r.Elapsed = elapsed
				r.ContentLength = &total
			}) {
				return
			}
			rec.persist(storeCtx, s.store, log)
			s.metrics.BytesWritten(n)
			progress.Do(func() {
				log.Debug().Int64("bytes", total).Msg("streaming response body")
			})
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return
			}
			rec.update(func(r *models.HttpResponse) {
				r.Error = wrap(ErrStream, readErr).Error()
			})
			break
		}
	}

	if err := file.Sync(); err != nil {
		log.Debug().Err(err).Msg("failed to sync response body")
	}

	length := written
	if resp.ContentLength >= 0 {
		length = resp.ContentLength
	}
	elapsed := time.Since(started).Milliseconds()
	rec.close(func(r *models.HttpResponse) {
		r.Elapsed = elapsed
		r.ContentLength = &length
	})
	rec.persist(storeCtx, s.store, log)
	log.Debug().Int64("bytes", written).Int64("contentLength", length).Msg("response closed")
}
