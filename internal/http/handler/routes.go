package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"auditflow/internal/model"
	"auditflow/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, delegate to the service, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, auditSvc service.AuditService, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/audits/metrics", GetAuditMetrics(auditSvc))
	app.Post("/audits/:id/state", ChangeAuditState(auditSvc))
	app.Get("/audits/:id/progress", GetAuditProgress(auditSvc))
	app.Get("/audits/:id/documents", ListAuditDocuments(docSvc))
	app.Post("/audits/:id/sections/:sectionID/documents", IngestDocuments(docSvc))
	app.Delete("/documents/:id", RemoveDocument(docSvc))

	app.Post("/admin/sweep", TriggerSweep(auditSvc))
}

// HealthCheck reports DB connectivity.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

type changeStateRequest struct {
	NewState string `json:"new_state"`
	Reason   string `json:"reason"`
	ActorID  *int64 `json:"actor_id"`
}

// ChangeAuditState moves an audit through the lifecycle graph.
func ChangeAuditState(svc service.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auditID, err := parseID(c, "id")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid audit id")
		}

		var req changeStateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		newState, err := model.ParseState(req.NewState)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STATE", "unknown audit state")
		}

		audit, err := svc.ChangeState(c.UserContext(), auditID, newState, req.Reason, req.ActorID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(audit)
	}
}

// GetAuditProgress returns coarse and fine-grained completion.
func GetAuditProgress(svc service.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auditID, err := parseID(c, "id")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid audit id")
		}

		p, err := svc.GetProgress(c.UserContext(), auditID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	}
}

// GetAuditMetrics returns per-state audit counts.
func GetAuditMetrics(svc service.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := svc.GetMetrics(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}

// IngestDocuments accepts a multipart batch of evidence files
// (field name: files) plus optional notes and actor_id form values.
func IngestDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auditID, err := parseID(c, "id")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid audit id")
		}
		sectionID, err := parseID(c, "sectionID")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid section id")
		}

		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "multipart form with files is required")
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		files := make([]service.IngestFile, 0, len(headers))
		opened := make([]interface{ Close() error }, 0, len(headers))
		defer func() {
			for _, f := range opened {
				f.Close()
			}
		}()
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			opened = append(opened, f)

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			files = append(files, service.IngestFile{
				Reader:      f,
				Filename:    fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
			})
		}

		notes := c.FormValue("notes")
		var actorID *int64
		if v := c.FormValue("actor_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ACTOR", "invalid actor id")
			}
			actorID = &id
		}

		res, err := svc.Ingest(c.UserContext(), auditID, sectionID, files, notes, actorID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListAuditDocuments returns the audit's documents grouped by section.
func ListAuditDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auditID, err := parseID(c, "id")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid audit id")
		}

		groups, err := svc.List(c.UserContext(), auditID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(groups)
	}
}

// RemoveDocument deletes a document on behalf of the actor_id query param.
func RemoveDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docID, err := parseID(c, "id")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid document id")
		}
		actorID, err := strconv.ParseInt(c.Query("actor_id"), 10, 64)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ACTOR", "actor_id query parameter is required")
		}

		if err := svc.Remove(c.UserContext(), docID, actorID); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// TriggerSweep runs the deadline sweep on demand. The periodic scheduler
// calls the same service entry point.
func TriggerSweep(svc service.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.RunScheduledChecks(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	return strconv.ParseInt(c.Params(param), 10, 64)
}
