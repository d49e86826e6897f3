package assets

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/dealer-chat/backend/internal/loader"
)

// Handler 提供挂件加载脚本和样式表
type Handler struct {
	script []byte
	css    []byte
}

// New 预先渲染加载脚本
func New(opts loader.ScriptOptions) (*Handler, error) {
	script, err := loader.Script(opts)
	if err != nil {
		return nil, err
	}
	return &Handler{
		script: script,
		css:    loader.Stylesheet(),
	}, nil
}

// RegisterRoutes 注册静态资源路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat-widget.js", h.handleScript)
	r.Get("/chat-widget.css", h.handleStylesheet)
}

func (h *Handler) handleScript(w http.ResponseWriter, r *http.Request) {
	write(w, "application/javascript; charset=utf-8", h.script)
}

func (h *Handler) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	write(w, "text/css; charset=utf-8", h.css)
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warn().Err(err).Msg("write asset")
	}
}
