package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophshare/internal/apierr"
	"github.com/dmitrijs2005/gophshare/internal/common"
)

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "malformed request body")
		return
	}

	u, pair, err := h.users.Register(r.Context(), req.UserName, req.Email, req.Password, req.Role)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}

	h.logger.Info(r.Context(), "user registered", "user_id", u.ID, "role", string(u.Role))
	writeJSON(w, http.StatusCreated, toSessionResponse(u, pair))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "malformed request body")
		return
	}

	res, err := h.users.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}

	if res.MFARequired {
		writeJSON(w, http.StatusOK, sessionResponse{MFARequired: true, UserName: res.User.UserName, MFAToken: res.MFAToken})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res.User, res.Tokens))
}

func (h *handler) verifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Code == "" || req.MFAToken == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "code and mfaToken are required")
		return
	}

	res, err := h.users.VerifyLoginMFA(r.Context(), req.UserName, req.MFAToken, req.Code)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res.User, res.Tokens))
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Refresh == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "refresh is required")
		return
	}

	access, err := h.users.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{Access: access})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Refresh == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "refresh is required")
		return
	}

	if err := h.users.Logout(r.Context(), req.Refresh); err != nil {
		apierr.WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusResetContent)
}

func (h *handler) mfaSetup(w http.ResponseWriter, r *http.Request) {
	enr, err := h.users.BeginMFAEnrollment(r.Context(), caller(r))
	if err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mfaSetupResponse{Secret: enr.Secret, QRCode: enr.QRCode, OTPAuthURL: enr.ProvisioningURI})
}

func (h *handler) mfaVerify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Code == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeValidation, "verification code is required")
		return
	}

	if err := h.users.ConfirmMFAEnrollment(r.Context(), caller(r), req.Code); err != nil {
		apierr.WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "MFA enabled successfully"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p := caller(r)
	if p == nil {
		apierr.WriteErr(w, common.ErrorUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, userDTO{ID: p.UserID, UserName: p.UserName, Email: p.Email, Role: string(p.Role), MFAEnabled: p.MFAEnabled})
}
