package controllers

import (
	"net/http"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/api/validators"
	"github.com/cakeverse/cakeverse-backend/internal/complaints"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

type resolveComplaintRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// ComplaintListMine returns the complaints the caller filed.
func ComplaintListMine(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaint service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListForUser(ctx, actor.UserID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ComplaintDetail is shared by the filer and complaint reviewers.
func ComplaintDetail(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaint service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		complaintID, err := validators.ParseUUIDParam(r, "complaintId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Get(ctx, complaintID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, complaints.NewComplaintView(*record))
	}
}

func StaffComplaintList(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaint service unavailable"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListPending(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// StaffComplaintApprove refunds the order and cancels it.
func StaffComplaintApprove(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveComplaint(svc, logg, true)
}

// StaffComplaintReject restores the order's prior status.
func StaffComplaintReject(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveComplaint(svc, logg, false)
}

func resolveComplaint(svc complaints.Service, logg *logger.Logger, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaint service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		complaintID, err := validators.ParseUUIDParam(r, "complaintId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body resolveComplaintRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		note := validators.CleanText(body.Note, 1000)

		resolve := svc.Reject
		if approve {
			resolve = svc.Approve
		}
		record, err := resolve(ctx, complaintID, actor.UserID, note)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, complaints.NewComplaintView(*record))
	}
}
