package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xbanchon/image-variant-service/internal/processor"
	"github.com/xbanchon/image-variant-service/internal/store"
)

const (
	variantContentType  = "image/jpeg"
	variantCacheControl = "public, max-age=604800, immutable"
)

type imagePathParams struct {
	ImageID int64 `validate:"gte=1"`
}

type variantPathParams struct {
	ImageID   int64 `validate:"gte=1"`
	VariantID int64 `validate:"gte=1"`
}

type UploadResponse struct {
	ImageID   int64  `json:"image_id"`
	VariantID int64  `json:"variant_id"`
	Path      string `json:"path"`
}

type VariantResponse struct {
	ID     int64  `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path"`
}

type ImageResponse struct {
	ID        int64             `json:"id"`
	AvgColor  string            `json:"avg_color"`
	CreatedAt string            `json:"created_at"`
	Variants  []VariantResponse `json:"variants"`
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "ok",
		"version": version,
	}

	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	buf, err := app.readImageData(w, r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			app.requestTooLargeResponse(w, r, err)
			return
		}
		app.badRequestResponse(w, r, err)
		return
	}

	id, err := app.images.Upload(r.Context(), buf)
	if err != nil {
		if errors.Is(err, processor.ErrDecode) {
			app.badRequestResponse(w, r, err)
			return
		}
		// imagesvc.ErrMetadata, processor.ErrEncode
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("upload accepted",
		"subject", getSubjectFromContext(r),
		"id", id.String(),
		"bytes", len(buf),
	)

	res := UploadResponse{
		ImageID:   id.Image,
		VariantID: id.Variant,
		Path:      id.ResourcePath(),
	}

	if err := app.jsonResponse(w, http.StatusCreated, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getImageHandler(w http.ResponseWriter, r *http.Request) {
	imageID, err := strconv.ParseInt(chi.URLParam(r, "imageID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	params := imagePathParams{ImageID: imageID}
	if err := Validate.Struct(params); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	image, err := app.getImage(r.Context(), params.ImageID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	res := ImageResponse{
		ID:        image.ID,
		AvgColor:  image.AvgColor,
		CreatedAt: image.CreatedAt,
		Variants:  make([]VariantResponse, len(image.Variants)),
	}
	for i, v := range image.Variants {
		res.Variants[i] = VariantResponse{
			ID:     v.ID,
			Width:  v.Width,
			Height: v.Height,
			Path:   store.ImageID{Image: image.ID, Variant: v.ID}.ResourcePath(),
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getVariantHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parseVariantParams(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	id := store.ImageID{Image: params.ImageID, Variant: params.VariantID}

	data, err := app.images.Get(r.Context(), id)
	if err != nil {
		app.notFoundResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", variantContentType)
	w.Header().Set("Cache-Control", variantCacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		app.logger.Warnw("variant write error", "id", id.String(), "error", err)
	}
}

// getImage serves image records from redis when enabled, filling it from
// the metadata store on a miss.
func (app *application) getImage(ctx context.Context, imageID int64) (*store.Image, error) {
	if !app.config.redisCfg.enabled {
		return app.images.Describe(ctx, imageID)
	}

	image, err := app.cacheStorage.Images.Get(ctx, imageID)
	if err != nil {
		app.logger.Warnw("image cache get error", "image_id", imageID, "error", err)
	}
	if image != nil {
		return image, nil
	}

	image, err = app.images.Describe(ctx, imageID)
	if err != nil {
		return nil, err
	}

	if err := app.cacheStorage.Images.Set(ctx, image); err != nil {
		app.logger.Warnw("image cache set error", "image_id", imageID, "error", err)
	}

	return image, nil
}

func parseVariantParams(r *http.Request) (variantPathParams, error) {
	var params variantPathParams

	imageID, err := strconv.ParseInt(chi.URLParam(r, "imageID"), 10, 64)
	if err != nil {
		return params, fmt.Errorf("invalid image id: %w", err)
	}
	variantID, err := strconv.ParseInt(chi.URLParam(r, "variantID"), 10, 64)
	if err != nil {
		return params, fmt.Errorf("invalid variant id: %w", err)
	}

	params = variantPathParams{ImageID: imageID, VariantID: variantID}
	if err := Validate.Struct(params); err != nil {
		return params, err
	}

	return params, nil
}

// readImageData returns the bytes of the "image" multipart field.
func (app *application) readImageData(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, app.config.maxUploadBytes)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, err
	}

	image, _, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer image.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, image); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
