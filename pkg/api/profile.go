package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/gatekeeper/pkg/apiresponses"
)

// ProfileController exposes the identity endpoints downstream of the
// pipeline: /api/profile/me personalizes without requiring login.
type ProfileController struct {
	optionalAuth gin.HandlerFunc
}

// NewProfileController builds the controller with the optional-auth stage.
func NewProfileController(optionalAuth gin.HandlerFunc) *ProfileController {
	return &ProfileController{optionalAuth: optionalAuth}
}

func (p *ProfileController) BasePath() string { return "profile" }

func (p *ProfileController) Handlers() []gin.HandlerFunc {
	return []gin.HandlerFunc{p.optionalAuth}
}

func (p *ProfileController) Register(rg *gin.RouterGroup) error {
	rg.GET("/me", Instrumented("profile_me", p.me))
	return nil
}

// me returns the attached identity claim, or an anonymous marker when the
// request carried no usable credential.
func (p *ProfileController) me(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"anonymous": true})
		return
	}
	apiresponses.RespondOK(c, identity)
}
