package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogurasousui/carnet-craft/internal/adapters/importsource"
	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/importer"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// WorkerUseCase は職員の登録・参照・更新・削除です。
type WorkerUseCase interface {
	CreateWorker(ctx context.Context, in worker.CreateWorkerInput) (*worker.Worker, error)
	GetWorker(ctx context.Context, in worker.GetWorkerInput) (*worker.Worker, error)
	ListWorkers(ctx context.Context, in worker.ListWorkersInput) (*worker.ListWorkersResult, error)
	UpdateWorker(ctx context.Context, in worker.UpdateWorkerInput) (*worker.Worker, error)
	DeleteWorker(ctx context.Context, in worker.DeleteWorkerInput) error
}

// OfficeUseCase は部署ディレクトリの操作です。
type OfficeUseCase interface {
	Load(ctx context.Context) (*office.Directory, error)
	Apply(ctx context.Context, edit func(*office.Directory) error) (*office.Directory, error)
	AddOffice(ctx context.Context, name, code string) (*office.Directory, error)
	EditOffice(ctx context.Context, oldCode, name, code string) (*office.Directory, error)
	RemoveOffice(ctx context.Context, code string) (*office.Directory, error)
}

// ImportUseCase は職員の一括取り込みです。
type ImportUseCase interface {
	Import(ctx context.Context, rows []importer.ImportRow, confirmer importer.Confirmer) (*importer.Summary, error)
}

// BadgeIssuer は職員証の発行判定と履歴の参照です。
type BadgeIssuer interface {
	IssueIfNeeded(ctx context.Context, in badge.IssueInput) (*badge.IssueResult, error)
	History(ctx context.Context, workerID string) ([]*badge.Badge, error)
}

// BadgeGenerator はカードの一括生成です。
type BadgeGenerator interface {
	GenerateBatch(ctx context.Context, in render.BatchInput) (*render.BatchSummary, error)
}

// CarnetGrpcHandler は CarnetService の gRPC 実装です。
type CarnetGrpcHandler struct {
	workers       WorkerUseCase
	offices       OfficeUseCase
	importer      ImportUseCase
	issuer        BadgeIssuer
	generator     BadgeGenerator
	defaultPolicy string
	outputRoot    string
}

var _ CarnetServiceServer = (*CarnetGrpcHandler)(nil)

// Option は CarnetGrpcHandler の挙動を変更します。
type Option func(*CarnetGrpcHandler)

// WithDefaultPolicy は要求に on_duplicate が無い場合の重複時の扱いを設定します。
func WithDefaultPolicy(policy string) Option {
	return func(h *CarnetGrpcHandler) {
		h.defaultPolicy = policy
	}
}

// WithOutputRoot はカードの出力先として許可するディレクトリを設定します。
// 要求の output_dir はこの配下の相対パスとして扱います。
func WithOutputRoot(dir string) Option {
	return func(h *CarnetGrpcHandler) {
		if dir != "" {
			h.outputRoot = dir
		}
	}
}

// NewCarnetGrpcHandler は CarnetGrpcHandler を生成します。
func NewCarnetGrpcHandler(workers WorkerUseCase, offices OfficeUseCase, imp ImportUseCase, issuer BadgeIssuer, generator BadgeGenerator, opts ...Option) *CarnetGrpcHandler {
	h := &CarnetGrpcHandler{
		workers:    workers,
		offices:    offices,
		importer:   imp,
		issuer:     issuer,
		generator:  generator,
		outputRoot: ".",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ImportWorkers はファイル内容または行の配列から職員を取り込みます。
func (h *CarnetGrpcHandler) ImportWorkers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	policy := strings.ToLower(stringField(req, "on_duplicate"))
	if policy == "" {
		policy = h.defaultPolicy
	}
	confirmer, ok := importer.ConfirmerForPolicy(policy)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "on_duplicate must be update or skip")
	}

	rows, err := importRowsOf(req)
	if err != nil {
		return nil, err
	}

	summary, err := h.importer.Import(ctx, rows, confirmer)
	if err != nil {
		if summary == nil {
			return nil, toStatusError(err)
		}
		// 途中まで確定した行の集計は詳細として返す
		return nil, withSummary(toStatusError(err), summary)
	}

	return newStruct(summaryFields(summary))
}

// GetWorker は身分証番号で職員を取得します。
func (h *CarnetGrpcHandler) GetWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	found, err := h.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: stringField(req, "national_id")})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{"worker": workerFields(found)})
}

// CreateWorker は職員を手入力で登録します。
func (h *CarnetGrpcHandler) CreateWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	photo, err := photoReferenceOf(req)
	if err != nil {
		return nil, err
	}
	created, err := h.workers.CreateWorker(ctx, worker.CreateWorkerInput{
		Name:           stringField(req, "name"),
		Surname:        stringField(req, "surname"),
		NationalID:     stringField(req, "national_id"),
		Office:         stringField(req, "office"),
		Title:          stringField(req, "title"),
		PhotoReference: valueOrEmpty(photo),
		BadgeType:      stringField(req, "badge_type"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{"worker": workerFields(created)})
}

// UpdateWorker は要求に含まれるフィールドだけを更新します。
func (h *CarnetGrpcHandler) UpdateWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	photo, err := photoReferenceOf(req)
	if err != nil {
		return nil, err
	}
	updated, err := h.workers.UpdateWorker(ctx, worker.UpdateWorkerInput{
		NationalID:     stringField(req, "national_id"),
		Name:           optionalField(req, "name"),
		Surname:        optionalField(req, "surname"),
		Office:         optionalField(req, "office"),
		Title:          optionalField(req, "title"),
		PhotoReference: photo,
		BadgeType:      optionalField(req, "badge_type"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{"worker": workerFields(updated)})
}

// ListWorkers は職員を姓名順にページ単位で返します。
func (h *CarnetGrpcHandler) ListWorkers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.workers.ListWorkers(ctx, worker.ListWorkersInput{
		Office:    stringField(req, "office"),
		PageSize:  intField(req, "page_size"),
		PageToken: stringField(req, "page_token"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(result.Workers))
	for _, w := range result.Workers {
		list = append(list, workerFields(w))
	}
	return newStruct(map[string]any{
		"workers":         list,
		"next_page_token": result.NextPageToken,
	})
}

// DeleteWorker は職員を削除します。発行記録も削除されます。
func (h *CarnetGrpcHandler) DeleteWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if err := h.workers.DeleteWorker(ctx, worker.DeleteWorkerInput{NationalID: stringField(req, "national_id")}); err != nil {
		return nil, toStatusError(err)
	}

	return &structpb.Struct{}, nil
}

// ListOffices は部署を表示順に返します。
func (h *CarnetGrpcHandler) ListOffices(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	dir, err := h.offices.Load(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(officesFields(dir))
}

// AddOffice は部署を追加し、追加後の一覧を返します。
func (h *CarnetGrpcHandler) AddOffice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	dir, err := h.offices.AddOffice(ctx, stringField(req, "name"), stringField(req, "code"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(officesFields(dir))
}

// EditOffice は部署の名前とコードを変更し、変更後の一覧を返します。
func (h *CarnetGrpcHandler) EditOffice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	dir, err := h.offices.EditOffice(ctx, stringField(req, "old_code"), stringField(req, "name"), stringField(req, "code"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(officesFields(dir))
}

// UpdateOffices は changes の追加・変更・削除をまとめて確定します。一件でも失敗すればどれも確定しません。
func (h *CarnetGrpcHandler) UpdateOffices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	changes, err := officeChangesOf(req)
	if err != nil {
		return nil, err
	}

	dir, err := h.offices.Apply(ctx, func(d *office.Directory) error {
		for i, c := range changes {
			if err := c.apply(d); err != nil {
				return fmt.Errorf("change %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(officesFields(dir))
}

// RemoveOffice は部署を削除し、削除後の一覧を返します。存在しないコードは何もしません。
func (h *CarnetGrpcHandler) RemoveOffice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	dir, err := h.offices.RemoveOffice(ctx, stringField(req, "code"))
	if err != nil {
		return nil, toStatusError(err)
	}
	return newStruct(officesFields(dir))
}

// IssueBadge は職員の有効な職員証を返します。無ければ発行します。
func (h *CarnetGrpcHandler) IssueBadge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	w, err := h.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: stringField(req, "national_id")})
	if err != nil {
		return nil, toStatusError(err)
	}

	res, err := h.issuer.IssueIfNeeded(ctx, badge.IssueInput{
		WorkerID:     w.ID,
		OfficeCode:   w.Office,
		ValidityDays: intField(req, "validity_days"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{
		"badge":  badgeFields(res.Badge),
		"issued": res.Issued,
	})
}

// ListBadges は職員の発行履歴を新しい順に返します。
func (h *CarnetGrpcHandler) ListBadges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	w, err := h.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: stringField(req, "national_id")})
	if err != nil {
		return nil, toStatusError(err)
	}

	badges, err := h.issuer.History(ctx, w.ID)
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(badges))
	for _, b := range badges {
		list = append(list, badgeFields(b))
	}
	return newStruct(map[string]any{"badges": list})
}

// GenerateBadges は指定された職員のカードを生成します。一件の失敗は集計に含めて継続します。
func (h *CarnetGrpcHandler) GenerateBadges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	ids := stringListField(req, "national_ids")
	if len(ids) == 0 {
		return nil, status.Error(codes.InvalidArgument, "national_ids is required")
	}

	outputDir, err := h.outputDirOf(req)
	if err != nil {
		return nil, err
	}

	summary, err := h.generator.GenerateBatch(ctx, render.BatchInput{
		NationalIDs: ids,
		OutputDir:   outputDir,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return newStruct(map[string]any{
		"dir":       summary.Dir,
		"total":     summary.Total,
		"generated": summary.Generated,
		"failed":    summary.Failed,
		"files":     toAnyList(summary.Files),
		"errors":    toAnyList(summary.Errors),
	})
}

// outputDirOf は output_dir を出力ルート配下に限定します。未指定ならルートそのものです。
func (h *CarnetGrpcHandler) outputDirOf(req *structpb.Struct) (string, error) {
	requested := stringField(req, "output_dir")
	if requested == "" {
		return h.outputRoot, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(requested))
	if !filepath.IsLocal(cleaned) {
		return "", status.Error(codes.InvalidArgument, "output_dir must be a relative path inside the output directory")
	}
	return filepath.Join(h.outputRoot, cleaned), nil
}

type officeChange struct {
	op      string
	oldCode string
	name    string
	code    string
}

func (c officeChange) apply(d *office.Directory) error {
	switch c.op {
	case "add":
		return d.Add(c.name, c.code)
	case "edit":
		return d.Edit(c.oldCode, c.name, c.code)
	default:
		d.Remove(c.code)
		return nil
	}
}

func officeChangesOf(req *structpb.Struct) ([]officeChange, error) {
	values := req.GetFields()["changes"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, status.Error(codes.InvalidArgument, "changes is required")
	}

	changes := make([]officeChange, 0, len(values))
	for i, v := range values {
		fields := v.GetStructValue()
		c := officeChange{
			op:      strings.ToLower(stringField(fields, "op")),
			oldCode: stringField(fields, "old_code"),
			name:    stringField(fields, "name"),
			code:    stringField(fields, "code"),
		}
		switch c.op {
		case "add", "edit", "remove":
		default:
			return nil, status.Errorf(codes.InvalidArgument, "change %d: op must be add, edit or remove", i+1)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// photoReferenceOf は photo_data (base64) を優先し、無ければ photo_path を返します。どちらも無ければ nil です。
func photoReferenceOf(req *structpb.Struct) (*string, error) {
	if encoded := stringField(req, "photo_data"); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "photo_data must be base64 encoded")
		}
		ref := string(data)
		return &ref, nil
	}
	return optionalField(req, "photo_path"), nil
}

func importRowsOf(req *structpb.Struct) ([]importer.ImportRow, error) {
	if list := req.GetFields()["rows"].GetListValue(); list != nil {
		rows := make([]importer.ImportRow, 0, len(list.GetValues()))
		for i, v := range list.GetValues() {
			columns := make(map[string]string)
			for k, cell := range v.GetStructValue().GetFields() {
				columns[k] = valueString(cell)
			}
			row := importsource.FromColumns(columns)
			row.Line = i + 1
			rows = append(rows, row)
		}
		return rows, nil
	}

	filename := stringField(req, "filename")
	encoded := stringField(req, "content")
	if filename == "" || encoded == "" {
		return nil, status.Error(codes.InvalidArgument, "rows or filename and content are required")
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "content must be base64 encoded")
	}

	rows, err := importsource.Read(bytes.NewReader(content), filename)
	if err != nil {
		return nil, toStatusError(err)
	}
	return rows, nil
}

func withSummary(err error, summary *importer.Summary) error {
	st := status.Convert(err)
	detail, buildErr := structpb.NewStruct(summaryFields(summary))
	if buildErr != nil {
		return err
	}
	withDetails, detailErr := st.WithDetails(detail)
	if detailErr != nil {
		return err
	}
	return withDetails.Err()
}

func summaryFields(s *importer.Summary) map[string]any {
	return map[string]any{
		"total":    s.Total,
		"inserted": s.Inserted,
		"updated":  s.Updated,
		"skipped":  s.Skipped,
		"errored":  s.Errored,
		"warnings": s.Warnings,
		"errors":   toAnyList(s.Errors),
	}
}

func workerFields(w *worker.Worker) map[string]any {
	return map[string]any{
		"id":             w.ID,
		"name":           w.Name,
		"surname":        w.Surname,
		"national_id":    w.NationalID,
		"office":         w.Office,
		"title":          w.Title,
		"photo_path":     w.PhotoPath,
		"has_photo_data": len(w.PhotoData) > 0,
		"badge_type":     string(w.BadgeType),
		"created_at":     w.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func badgeFields(b *badge.Badge) map[string]any {
	return map[string]any{
		"id":            b.ID,
		"worker_id":     b.WorkerID,
		"office_code":   b.OfficeCode,
		"sequence_code": b.SequenceCode,
		"issue_date":    b.IssueDate.UTC().Format(time.RFC3339),
		"expiry_date":   b.ExpiryDate.UTC().Format(time.RFC3339),
	}
}

func officesFields(dir *office.Directory) map[string]any {
	entries := dir.List()
	list := make([]any, 0, len(entries))
	for _, o := range entries {
		list = append(list, map[string]any{
			"name":     o.Name,
			"code":     o.Code,
			"position": o.Position,
		})
	}
	return map[string]any{"offices": list}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

func stringField(req *structpb.Struct, key string) string {
	return strings.TrimSpace(valueString(req.GetFields()[key]))
}

func valueString(v *structpb.Value) string {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return fmt.Sprintf("%.0f", kind.NumberValue)
	case *structpb.Value_BoolValue:
		return fmt.Sprintf("%t", kind.BoolValue)
	default:
		return ""
	}
}

// optionalField はキーが無ければ nil を返します。
func optionalField(req *structpb.Struct, key string) *string {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil
	}
	s := strings.TrimSpace(valueString(v))
	return &s
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intField(req *structpb.Struct, key string) int {
	return int(req.GetFields()[key].GetNumberValue())
}

func stringListField(req *structpb.Struct, key string) []string {
	values := req.GetFields()[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(valueString(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toAnyList(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
