package grpcserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"fieldDispatch/internal/auth"
	"fieldDispatch/internal/dispatch"
	"fieldDispatch/models"
)

const (
	maxPageSize     = 100 // Maximum allowed page size for ListJobs.
	defaultPageSize = 50
)

// DispatchServer implements DispatchServiceServer over the dispatch core.
type DispatchServer struct {
	Service *dispatch.Service
	// Users, when set, re-checks ADMIN/DISPATCHER roles against the stored user.
	Users auth.UserLookup
}

var _ DispatchServiceServer = (*DispatchServer)(nil)

func (s *DispatchServer) CreateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireDispatcher(ctx, s.Users); err != nil {
		return nil, toStatus(err)
	}
	var in dispatch.NewJob
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	job, err := s.Service.CreateJob(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"job": job})
}

func (s *DispatchServer) GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, toStatus(err)
	}
	id, err := requiredString(req, "id")
	if err != nil {
		return nil, err
	}
	job, err := s.Service.GetJob(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"job": job})
}

type listJobsRequest struct {
	Status       *models.JobStatus `json:"status"`
	TechnicianID *string           `json:"technicianId"`
	Near         *struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		RadiusMiles float64 `json:"radiusMiles"`
	} `json:"near"`
	PageSize  int    `json:"pageSize"`
	PageToken string `json:"pageToken"`
}

// ListJobs returns jobs newest first. Pages are addressed by an opaque offset token.
func (s *DispatchServer) ListJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, toStatus(err)
	}
	var in listJobsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset, err := decodePageToken(in.PageToken)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid page_token")
	}

	f := models.JobFilter{Status: in.Status, TechnicianID: in.TechnicianID}
	if in.Near != nil {
		f.Near = &models.GeoRadius{Latitude: in.Near.Latitude, Longitude: in.Near.Longitude, RadiusMiles: in.Near.RadiusMiles}
	}
	jobs, err := s.Service.ListJobs(ctx, f)
	if err != nil {
		return nil, toStatus(err)
	}

	next := ""
	if offset > len(jobs) {
		offset = len(jobs)
	}
	end := offset + pageSize
	if end < len(jobs) {
		next = encodePageToken(end)
	} else {
		end = len(jobs)
	}
	return encode(map[string]any{"jobs": jobs[offset:end], "nextPageToken": next})
}

type updateJobRequest struct {
	ID string `json:"id"`
	dispatch.JobPatch
}

func (s *DispatchServer) UpdateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, toStatus(err)
	}
	var in updateJobRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	job, err := s.Service.UpdateJobFields(ctx, in.ID, in.JobPatch)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"job": job})
}

func (s *DispatchServer) DeleteJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireDispatcher(ctx, s.Users); err != nil {
		return nil, toStatus(err)
	}
	id, err := requiredString(req, "id")
	if err != nil {
		return nil, err
	}
	if err := s.Service.DeleteJob(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"id": id, "deleted": true})
}

func (s *DispatchServer) DispatchJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireDispatcher(ctx, s.Users); err != nil {
		return nil, toStatus(err)
	}
	id, err := requiredString(req, "jobId")
	if err != nil {
		return nil, err
	}
	res, err := s.Service.DispatchOne(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *DispatchServer) DispatchBatch(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireDispatcher(ctx, s.Users); err != nil {
		return nil, toStatus(err)
	}
	res, err := s.Service.DispatchBatch(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{
		"message":     fmt.Sprintf("Dispatched %d jobs", len(res)),
		"assignments": res,
	})
}

// ListTechnicians returns every technician with their active jobs, or only
// the idle ones when "available" is true.
func (s *DispatchServer) ListTechnicians(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, toStatus(err)
	}
	if v, ok := req.GetFields()["available"]; ok && v.GetBoolValue() {
		techs, err := s.Service.AvailableTechnicians(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		return encode(map[string]any{"technicians": techs})
	}
	techs, err := s.Service.ListTechniciansWithLoad(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"technicians": techs})
}

// toStatus maps dispatch and auth errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, dispatch.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dispatch.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, dispatch.ErrInvalidState), errors.Is(err, dispatch.ErrNoCapacity):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Errorf(codes.Internal, "%v", err)
}

// decode converts a Struct into dst through its JSON form.
func decode(in *structpb.Struct, dst any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

// encode converts v into a Struct through its JSON form. v must marshal to a JSON object.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	v := req.GetFields()[key].GetStringValue()
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodePageToken(tok string) (int, error) {
	if tok == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad offset %q", raw)
	}
	return n, nil
}
