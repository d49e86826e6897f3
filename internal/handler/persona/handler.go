package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
	"github.com/zhouzirui/dealer-chat/backend/internal/service/relay"
	"github.com/zhouzirui/dealer-chat/backend/pkg/utils"
)

// Authorizer 判断域名是否在白名单内
type Authorizer interface {
	Authorize(domain string) error
}

// Handler 挂件外观配置的HTTP处理器
type Handler struct {
	personas persona.Store
	auth     Authorizer
}

// New 创建persona处理器
func New(personas persona.Store, auth Authorizer) *Handler {
	return &Handler{
		personas: personas,
		auth:     auth,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widget/{domain}", h.handleWidgetProfile)
}

type widgetProfile struct {
	Domain         string `json:"domain"`
	DisplayName    string `json:"displayName"`
	WelcomeMessage string `json:"welcomeMessage"`
	PrimaryColor   string `json:"primaryColor"`
}

// handleWidgetProfile 返回某个经销商域名的挂件展示信息
func (h *Handler) handleWidgetProfile(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if err := h.auth.Authorize(domain); err != nil {
		utils.RespondError(w, http.StatusUnauthorized, relay.UnauthorizedDomainMessage)
		return
	}

	p := h.personas.ForDomain(domain)
	utils.RespondJSON(w, http.StatusOK, widgetProfile{
		Domain:         p.Domain,
		DisplayName:    p.DisplayName,
		WelcomeMessage: p.WelcomeMessage,
		PrimaryColor:   p.PrimaryColor,
	})
}
