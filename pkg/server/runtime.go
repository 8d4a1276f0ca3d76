package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

// requestState carries the in-flight request to the controller
// collaborators that answer it.
type requestState struct {
	w http.ResponseWriter
	r *http.Request

	mu         sync.Mutex
	alerts     []errors.Alert
	downloaded bool
}

type requestKey struct{}

func withRequestState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{w: w}
		r = r.WithContext(context.WithValue(r.Context(), requestKey{}, st))
		st.r = r
		next.ServeHTTP(w, r)
	})
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(requestKey{}).(*requestState)
	return st
}

func (st *requestState) takeAlerts() []errors.Alert {
	st.mu.Lock()
	defer st.mu.Unlock()
	a := st.alerts
	st.alerts = nil
	return a
}

// NewDownloader returns the export.Downloader of the browser runtime: the
// request that triggered the save is answered with the image as an
// attachment, the server-side equivalent of clicking a download link.
func NewDownloader() export.Downloader {
	return export.DownloaderFunc(func(ctx context.Context, filename, dataURI string) error {
		st := stateFrom(ctx)
		if st == nil {
			return errors.New(errors.ErrCodeInternal, "download outside of a request")
		}
		data, err := export.DecodeDataURI(dataURI)
		if err != nil {
			return err
		}
		w := st.w
		w.Header().Set("Content-Type", export.MIMEJPEG)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		st.mu.Lock()
		st.downloaded = true
		st.mu.Unlock()
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(errors.ErrCodeExport, err, "write %s", filename)
		}
		return nil
	})
}

// NewNotifier returns a screen.Notifier that attaches alerts to the
// current response.
func NewNotifier() screen.Notifier {
	return screen.NotifierFunc(func(ctx context.Context, alert errors.Alert) {
		if st := stateFrom(ctx); st != nil {
			st.mu.Lock()
			st.alerts = append(st.alerts, alert)
			st.mu.Unlock()
		}
	})
}

// NewPicker returns a screen.Picker reading the "photo" upload of the
// current request. A request without the file is a canceled pick.
func NewPicker() screen.Picker {
	return screen.PickerFunc(func(ctx context.Context) (compose.ImageRef, bool, error) {
		st := stateFrom(ctx)
		if st == nil {
			return compose.ImageRef{}, false, errors.New(errors.ErrCodeInternal, "pick outside of a request")
		}
		return readUpload(st.r, "photo")
	})
}

func readUpload(r *http.Request, field string) (compose.ImageRef, bool, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !stderrors.Is(err, http.ErrNotMultipart) {
		return compose.ImageRef{}, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse upload")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) || stderrors.Is(err, http.ErrNotMultipart) {
			return compose.ImageRef{}, false, nil
		}
		return compose.ImageRef{}, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", field)
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return compose.ImageRef{}, false, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode %s", header.Filename)
	}
	return compose.FromImage("upload:"+header.Filename, img), true, nil
}
