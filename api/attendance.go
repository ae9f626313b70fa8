package api

import (
	"bytes"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutrack/attendance/core"
	"github.com/edutrack/attendance/core/attendance"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type attendanceApi struct {
	svc        *attendance.Service
	dispatcher *attendance.Dispatcher
	validate   *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	svc *attendance.Service,
	dispatcher *attendance.Dispatcher,
	validate *validator.Validate,
) {
	api := attendanceApi{
		svc:        svc,
		dispatcher: dispatcher,
		validate:   validate,
	}

	ag := g.Group("/attendance")
	ag.POST("/upload", api.upload)
	ag.POST("/upload-file", api.uploadFile)
	ag.GET("/template", api.template)
	ag.GET("/batches", api.listBatches)
	ag.GET("/batches/latest", api.latestBatch)
	ag.GET("/batches/:id", api.analyze)
	ag.GET("/history", api.listHistory)
	ag.POST("/send-emails", api.sendEmails)
}

// Handlers

func (api *attendanceApi) upload(ctx echo.Context) error {
	var data attendance.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	batch, err := api.svc.Upload(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "uploading batch")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"id": batch.ID})
}

func (api *attendanceApi) uploadFile(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(errors.New("no spreadsheet file provided"))
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	rows, err := attendance.ParseWorkbook(f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return core.NewValidationError(errors.New("spreadsheet contains no records"))
	}

	data := attendance.NewBatch{
		Records:    rows,
		ClassName:  core.CleanString(ctx.FormValue("className")),
		UploadedBy: core.CleanString(ctx.FormValue("uploadedBy")),
	}
	batch, err := api.svc.Upload(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "uploading batch")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"id": batch.ID})
}

func (api *attendanceApi) template(ctx echo.Context) error {
	var buff bytes.Buffer
	if err := attendance.WriteTemplate(&buff); err != nil {
		return errors.Wrap(err, "generating template")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="attendance_template.xlsx"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, buff.Bytes())
}

func (api *attendanceApi) listBatches(ctx echo.Context) error {
	batches, err := api.svc.ListBatches(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing batches")
	}
	if batches == nil {
		batches = []attendance.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *attendanceApi) latestBatch(ctx echo.Context) error {
	id, err := api.svc.LatestBatchID(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "finding latest batch")
	}
	if id == "" {
		return ctx.JSON(http.StatusOK, nil)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"id": id})
}

func (api *attendanceApi) analyze(ctx echo.Context) error {
	report, err := api.svc.Analyze(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == attendance.ErrBatchNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "analyzing batch")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) listHistory(ctx echo.Context) error {
	entries, err := api.svc.ListHistory(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing history")
	}
	if entries == nil {
		entries = []attendance.HistoryEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *attendanceApi) sendEmails(ctx echo.Context) error {
	var data SendEmailsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendEmailsRequest")
	}
	// an empty list is a valid (no-op) dispatch; a missing one is not
	if data.Defaulters == nil {
		return core.NewValidationError(errors.New("invalid payload"))
	}

	report := api.dispatcher.Dispatch(data.Defaulters)
	return ctx.JSON(http.StatusOK, report)
}

type SendEmailsRequest struct {
	Defaulters []attendance.Defaulter `json:"defaulters"`
}
