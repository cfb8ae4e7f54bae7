package api

import (
	"github.com/gin-gonic/gin"

	"github.com/coursehub/gatekeeper/pkg/apiresponses"
)

// ManageController is the admin-scoped surface. Every route in it sits
// behind the required-auth and whitelist stages.
type ManageController struct {
	handlers []gin.HandlerFunc
}

// NewManageController builds the controller with the admin chain.
func NewManageController(adminChain []gin.HandlerFunc) *ManageController {
	return &ManageController{handlers: adminChain}
}

func (m *ManageController) BasePath() string { return "admin" }

func (m *ManageController) Handlers() []gin.HandlerFunc {
	return m.handlers
}

func (m *ManageController) Register(rg *gin.RouterGroup) error {
	rg.GET("/status", Instrumented("admin_status", m.status))
	return nil
}

// status confirms admin access for the SPA's admin panel bootstrap.
func (m *ManageController) status(c *gin.Context) {
	identity, _ := IdentityFromContext(c)
	apiresponses.RespondOK(c, gin.H{
		"admin": IsAdmin(c),
		"email": identity.Email,
	})
}
