package app

import (
	"github.com/Ren-B-7/live-preview.nvim/internal/contracts"
	"github.com/Ren-B-7/live-preview.nvim/internal/render"
	httptransport "github.com/Ren-B-7/live-preview.nvim/internal/transport/http"
)

// LivePreview is a coordinator between markdown rendering and HTTP delivery.
// It is also the server object the diagnostics consult: IsRunning and
// Webroot expose the logical server state, as distinct from the OS-level
// socket ownership the doctor inspects separately.
type LivePreview struct {
	renderer *render.Renderer
	preview  *httptransport.PreviewServer
}

func NewLivePreview(addr string) *LivePreview {
	renderer := render.NewRenderer()
	return &LivePreview{
		renderer: renderer,
		preview:  httptransport.NewPreviewServer(addr, renderer.RenderShell()),
	}
}

func (s *LivePreview) URL() string {
	return s.preview.URL()
}

// Port returns the TCP port the preview server is configured for.
func (s *LivePreview) Port() int {
	return s.preview.Port()
}

// IsRunning reports whether the preview server has been started.
func (s *LivePreview) IsRunning() bool {
	return s.preview.Running()
}

// Webroot returns the directory currently being served, if any.
func (s *LivePreview) Webroot() (string, bool) {
	return s.preview.Webroot()
}

func (s *LivePreview) PublishSource(source []byte, path string) error {
	fragment, err := s.renderer.ConvertFragmentWithSourcePath(source, path)
	if err != nil {
		return err
	}

	return s.preview.StartOrUpdate(fragment, path)
}

func (s *LivePreview) PublishCursor(line int, col int) error {
	return s.preview.UpdateCursor(contracts.CursorMessage{
		Type: contracts.MessageTypeCursor,
		Line: line,
		Col:  col,
	})
}

// Stop shuts the preview server down.
func (s *LivePreview) Stop() error {
	return s.preview.Stop()
}

// SetGoToLineHandler forwards the handler registration to the transport manager
func (s *LivePreview) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	s.preview.SetGoToLineHandler(fn)
}
