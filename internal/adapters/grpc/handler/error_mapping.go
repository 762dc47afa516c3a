package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/carnet-craft/internal/adapters/importsource"
	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/importer"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, worker.ErrInvalidNationalID),
		errors.Is(err, worker.ErrInvalidName),
		errors.Is(err, worker.ErrInvalidSurname),
		errors.Is(err, worker.ErrInvalidOffice),
		errors.Is(err, worker.ErrInvalidTitle),
		errors.Is(err, worker.ErrInvalidPhoto),
		errors.Is(err, worker.ErrInvalidBadgeType),
		errors.Is(err, worker.ErrMissingRequiredField),
		errors.Is(err, worker.ErrInvalidPageSize),
		errors.Is(err, worker.ErrInvalidPageToken),
		errors.Is(err, office.ErrInvalidName),
		errors.Is(err, office.ErrInvalidCode),
		errors.Is(err, badge.ErrInvalidWorkerID),
		errors.Is(err, badge.ErrInvalidOfficeCode),
		errors.Is(err, badge.ErrInvalidValidity),
		errors.Is(err, importer.ErrConfirmerRequired),
		errors.Is(err, importsource.ErrUnsupportedFormat),
		errors.Is(err, importsource.ErrMissingColumns),
		errors.Is(err, importsource.ErrEmptySheet),
		errors.Is(err, render.ErrMissingField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, worker.ErrNationalIDAlreadyExists),
		errors.Is(err, office.ErrDuplicate),
		errors.Is(err, badge.ErrSequenceCodeAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, worker.ErrWorkerNotFound),
		errors.Is(err, office.ErrOfficeNotFound),
		errors.Is(err, badge.ErrBadgeNotFound),
		errors.Is(err, render.ErrOfficeNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, badge.ErrSequenceExhausted),
		errors.Is(err, badge.ErrInvalidSequenceCode),
		errors.Is(err, render.ErrPhotoUnreadable),
		errors.Is(err, render.ErrTemplateMissing):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
