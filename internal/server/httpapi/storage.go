package httpapi

import (
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophshare/internal/apierr"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// multipart field names of an upload
const (
	formFile         = "file"
	formEncryptedKey = "encrypted_key"
	formFileName     = "file_name"
	formFileType     = "file_type"
	formFileSize     = "file_size"
)

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierr.Write(w, http.StatusRequestEntityTooLarge, apierr.CodeTooLarge, "upload exceeds size limit")
			return
		}
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "malformed multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	f, hdr, err := r.FormFile(formFile)
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "file is required")
		return
	}
	defer f.Close()

	envelope, err := io.ReadAll(f)
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "cannot read file")
		return
	}

	key, err := base64.StdEncoding.DecodeString(r.FormValue(formEncryptedKey))
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "encrypted_key must be base64")
		return
	}

	name := r.FormValue(formFileName)
	if name == "" {
		name = hdr.Filename
	}

	var size int64
	if s := r.FormValue(formFileSize); s != "" {
		size, err = strconv.ParseInt(s, 10, 64)
		if err != nil || size < 0 {
			apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "file_size must be a non-negative integer")
			return
		}
	}

	file, err := h.files.Upload(r.Context(), caller(r), services.UploadInput{
		FileName:    name,
		ContentType: r.FormValue(formFileType),
		Size:        size,
		ContentKey:  key,
		Envelope:    envelope,
	})
	common.WipeByteArray(key)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileDTO(file, ""))
}

func (h *handler) listFiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.files.List(r.Context(), caller(r))
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}

	out := make([]fileDTO, 0, len(list))
	for _, fa := range list {
		out = append(out, toFileDTO(fa.File, fa.Permission))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		apierr.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	p, err := h.files.Download(r.Context(), caller(r), chi.URLParam(r, "id"), r.Header.Get(common.ShareTokenHeaderName))
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writePayload(w, p, "attachment")
}

func (h *handler) preview(w http.ResponseWriter, r *http.Request) {
	p, err := h.files.Preview(r.Context(), caller(r), chi.URLParam(r, "id"), r.Header.Get(common.ShareTokenHeaderName))
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writePayload(w, p, "inline")
}

// writePayload sends the envelope as the body and the content key
// out-of-band in the Encrypted-Key header.
func writePayload(w http.ResponseWriter, p *models.FilePayload, disposition string) {
	w.Header().Set(common.EncryptedKeyHeaderName, base64.StdEncoding.EncodeToString(p.ContentKey))
	common.WipeByteArray(p.ContentKey)

	w.Header().Set("Content-Type", p.File.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": p.File.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Envelope)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Access-Control-Expose-Headers", strings.Join([]string{common.EncryptedKeyHeaderName, "Content-Disposition"}, ", "))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Envelope)
}

func (h *handler) grantShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Email == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "email is required")
		return
	}
	perm, err := models.ParsePermission(req.Permission)
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, err.Error())
		return
	}

	g, err := h.shares.GrantShare(r.Context(), caller(r), chi.URLParam(r, "id"), req.Email, perm)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGrantDTO(g))
}

func (h *handler) listShares(w http.ResponseWriter, r *http.Request) {
	grants, err := h.shares.ListShares(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}

	out := make([]grantDTO, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantDTO(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createLink(w http.ResponseWriter, r *http.Request) {
	var req shareLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "malformed request body")
		return
	}
	perm, err := models.ParsePermission(req.Permission)
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, err.Error())
		return
	}
	hours := services.DefaultLinkExpiryHours
	if req.ExpirationHours != nil {
		hours = *req.ExpirationHours
	}

	link, err := h.shares.CreateShareLink(r.Context(), caller(r), chi.URLParam(r, "id"), hours, perm)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shareLinkResponse{Token: link.Token, ExpiresAt: link.ExpiresAt, Permission: string(link.Permission)})
}

func (h *handler) resolveLink(w http.ResponseWriter, r *http.Request) {
	res, err := h.shares.ResolveShareLink(r.Context(), caller(r), chi.URLParam(r, "token"))
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolvedLinkResponse{
		File:       toFileDTO(res.File, res.Permission),
		Permission: string(res.Permission),
		ExpiresAt:  res.ExpiresAt,
		SharedWith: toUserDTO(res.SharedWith),
	})
}

func (h *handler) revokeLink(w http.ResponseWriter, r *http.Request) {
	if err := h.shares.RevokeShareLink(r.Context(), caller(r), chi.URLParam(r, "token")); err != nil {
		apierr.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
