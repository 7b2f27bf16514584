package plugin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gookit/event"
	"github.com/plugward/plugward/internal/api/resp"
	"github.com/plugward/plugward/internal/database/auditlog"
	"github.com/plugward/plugward/internal/database/plugins"
	"github.com/plugward/plugward/internal/eventType"
	"github.com/plugward/plugward/internal/manifest"
	"github.com/plugward/plugward/internal/security/permission"
	"github.com/plugward/plugward/internal/security/sandbox"
)

func registerRoutes(p *Pipeline) {
	event.On(eventType.ServerInitializeStart, event.ListenerFunc(func(e event.Event) error {
		r := e.Get("engine").(*gin.Engine)
		loadRoutes(r, p)
		return nil
	}), event.Normal+5)
}

func loadRoutes(r *gin.Engine, p *Pipeline) {
	r.GET("/api/version", resp.GetVersion)

	admin := r.Group("/api/admin")

	admin.POST("/plugins", func(c *gin.Context) {
		var m manifest.Manifest
		if err := c.ShouldBindJSON(&m); err != nil {
			resp.RespondError(c, http.StatusBadRequest, "invalid manifest body")
			return
		}
		out, err := p.Register(&m)
		if err != nil {
			resp.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if !out.Accepted {
			resp.Respond(c, http.StatusUnprocessableEntity, "rejected", out.Reason, out)
			return
		}
		resp.Respond(c, http.StatusCreated, "success", "plugin registered", out)
	})

	admin.GET("/plugins", func(c *gin.Context) {
		recs, err := plugins.List()
		if err != nil {
			resp.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RespondSuccess(c, recs)
	})

	admin.GET("/plugins/:id/report", func(c *gin.Context) {
		report, rec, err := p.Report(c.Param("id"))
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		resp.RespondSuccess(c, gin.H{
			"report":           report,
			"validation_level": rec.ValidationLevel,
			"registered_at":    rec.CreatedAt,
		})
	})

	admin.GET("/plugins/:id/permissions", func(c *gin.Context) {
		resp.RespondSuccess(c, p.Grants(c.Param("id")))
	})

	admin.POST("/plugins/:id/permissions", func(c *gin.Context) {
		var patch map[string]bool
		if err := c.ShouldBindJSON(&patch); err != nil {
			resp.RespondError(c, http.StatusBadRequest, "invalid permission patch")
			return
		}
		effective, err := p.UpdateGrants(c.Param("id"), patch)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		resp.RespondSuccess(c, effective)
	})

	admin.POST("/plugins/:id/execute", func(c *gin.Context) {
		var req ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			resp.RespondError(c, http.StatusBadRequest, "invalid execute request")
			return
		}
		result, err := p.Execute(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		resp.RespondSuccess(c, gin.H{"result": result})
	})

	admin.DELETE("/plugins/:id", func(c *gin.Context) {
		if err := p.Remove(c.Param("id")); err != nil {
			respondPipelineError(c, err)
			return
		}
		resp.RespondSuccessMessage(c, "plugin removed", nil)
	})

	admin.GET("/audit", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		recs, err := auditlog.Recent(c.Query("plugin"), limit)
		if err != nil {
			resp.RespondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RespondSuccess(c, recs)
	})
}

func respondPipelineError(c *gin.Context, err error) {
	var capErr *permission.CapabilityError
	switch {
	case errors.Is(err, ErrPluginNotFound):
		resp.RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPluginDisabled):
		resp.RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPayloadRejected):
		resp.RespondError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &capErr):
		resp.RespondError(c, http.StatusForbidden, capErr.Error())
	case errors.Is(err, sandbox.ErrRateLimited):
		resp.RespondError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, sandbox.ErrExecutionTimeout):
		resp.RespondError(c, http.StatusGatewayTimeout, err.Error())
	default:
		resp.RespondError(c, http.StatusInternalServerError, err.Error())
	}
}
