package controllers

import (
	"io"
	"mime/multipart"

	"cognitory/backend/oops"
	"cognitory/backend/services"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const MaxUploadFiles = 10

type UtilController struct {
	Storage services.Storage
}

func NewUtilController(storage services.Storage) *UtilController {
	return &UtilController{Storage: storage}
}

type UploadResult struct {
	UUID  string   `json:"uuid"`
	Files []string `json:"files"`
}

// [+] Upload godoc
// @Summary Upload question images
// @Description Stores every file of the "files" field under one correlation uuid.
// @Tags util
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 406 {object} utils.ErrorResponse
// @Router /util/upload [post]
func (uc *UtilController) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.Fail(c, oops.Validation(map[string]string{"files": "files is required"}))
	}
	files := form.File["files"]
	if len(files) == 0 {
		return utils.Fail(c, oops.Validation(map[string]string{"files": "files is required"}))
	}
	if len(files) > MaxUploadFiles {
		return utils.Fail(c, oops.Validation(map[string]string{"files": "files must contain at most 10 items"}))
	}

	result := UploadResult{
		UUID:  uuid.NewString(),
		Files: make([]string, len(files)),
	}

	g, gctx := errgroup.WithContext(c.UserContext())
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			content, err := readUpload(file)
			if err != nil {
				return err
			}
			contentType := file.Header.Get(fiber.HeaderContentType)
			if contentType == "" {
				contentType = fiber.MIMEOctetStream
			}
			url, err := uc.Storage.Put(gctx, services.ObjectKey(result.UUID, file.Filename), content, contentType)
			if err != nil {
				return err
			}
			result.Files[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, "Files uploaded successfully", result)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, oops.New(err, "failed to open upload %s", file.Filename)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, oops.New(err, "failed to read upload %s", file.Filename)
	}
	return content, nil
}
