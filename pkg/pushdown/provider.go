package pushdown

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/iceberg-go"
	"github.com/minio/s3tables-go/internal/logging"
	"github.com/minio/s3tables-go/pkg/s3tables"
)

var log = logging.For("pushdown")

// PlanningStatus mirrors the Iceberg REST scan-planning response's status
// field (spec.md §4.11).
type PlanningStatus string

const (
	PlanningCompleted PlanningStatus = "completed"
	PlanningSubmitted PlanningStatus = "submitted"
	PlanningFailed    PlanningStatus = "failed"
	PlanningCancelled PlanningStatus = "cancelled"
)

// FileScanTask is one unit of a completed scan plan: a data file, its
// partition values, and enough bookkeeping for pruning and row estimates.
type FileScanTask struct {
	DataFileURI     string                 `json:"data-file"`
	PartitionValues map[string]interface{} `json:"partition"`
	RecordCount     int64                  `json:"record-count"`
	FileSizeBytes   int64                  `json:"file-size-bytes"`
}

type planTableScanResponse struct {
	Status        PlanningStatus `json:"status"`
	FileScanTasks []FileScanTask `json:"file-scan-tasks"`
}

// PushdownSupport reports, per filter, whether the engine must still
// re-check it after the provider's plan runs (spec.md §4.11 step 7).
type PushdownSupport string

const (
	SupportInexact     PushdownSupport = "inexact"
	SupportUnsupported PushdownSupport = "unsupported"
)

// FilterReport pairs a caller-supplied filter with its resulting support
// level.
type FilterReport struct {
	Filter  Expr
	Support PushdownSupport
}

// FileReader executes one FileScanTask against a projected schema and an
// optional row limit, yielding decoded rows. A concrete Parquet-backed
// implementation is a deployment-time concern (no Parquet decoder is part
// of this module's dependency set); TableProvider is parameterized over
// this interface so tests and embedders can supply one.
type FileReader interface {
	Read(ctx context.Context, task FileScanTask, projection []string, limit *int64) (RowIter, error)
}

// RowIter yields decoded rows one at a time.
type RowIter interface {
	Next() (map[string]interface{}, bool)
	Err() error
	Close() error
}

// ScanPlan holds the pieces of a scan: the projected schema, one reader per
// surviving file, and the residual predicates. It does not union the
// readers into one row stream and does not evaluate the residual
// predicates against any row; Residual returns them as they were given.
type ScanPlan struct {
	Schema    *iceberg.Schema
	readers   []RowIter
	residual  []Expr
	filesUsed int
}

// TableProvider drives Scan against a single warehouse/namespace/table,
// combining the Tables REST scan-planning call with client-side partition
// pruning. Residual filters are carried on the returned ScanPlan, not
// applied to its rows.
type TableProvider struct {
	Client        *s3tables.Client
	Warehouse     string
	Namespace     s3tables.Namespace
	Table         string
	Schema        *iceberg.Schema
	PartitionCols map[string]bool // bare partition-spec source column names
	Reader        FileReader
}

// planTableScan calls the Tables REST scan-planning endpoint. Kept as its
// own unexported step so Scan's control flow (below) reads as the ordered
// list spec.md §4.11 names.
func (p *TableProvider) planTableScan(ctx context.Context, filterJSON json.RawMessage) (planTableScanResponse, error) {
	body := map[string]interface{}{}
	if filterJSON != nil {
		body["filter"] = filterJSON
	}
	var out planTableScanResponse
	segs := []string{"warehouses", p.Warehouse, "namespaces", p.Namespace.PathSegment(), "tables", p.Table, "plan"}
	if err := p.Client.PostJSON(ctx, segs, body, &out); err != nil {
		return planTableScanResponse{}, err
	}
	return out, nil
}

// Scan implements spec.md §4.11's TableProvider.scan.
func (p *TableProvider) Scan(ctx context.Context, projection []string, filters []Expr, limit *int64) (*ScanPlan, []FilterReport, error) {
	pushable, residual := ClassifyFilters(filters)

	var filterJSON json.RawMessage
	if fj, ok := TranslateAll(pushable); ok {
		filterJSON = fj
	}

	planResp, err := p.planTableScan(ctx, filterJSON)
	if err != nil {
		return nil, nil, err
	}
	switch planResp.Status {
	case PlanningCompleted:
		// fall through
	case PlanningSubmitted:
		return nil, nil, fmt.Errorf("pushdown: async scan planning (status=submitted) is not supported")
	case PlanningFailed, PlanningCancelled:
		return nil, nil, fmt.Errorf("pushdown: scan planning ended with status=%s", planResp.Status)
	default:
		return nil, nil, fmt.Errorf("pushdown: unrecognized planning status %q", planResp.Status)
	}

	partitionPredicates := PartitionColumns(pushable, p.PartitionCols)
	tasks, filesBefore, filesAfter := prune(planResp.FileScanTasks, partitionPredicates)
	log.WithField("table", p.Table).WithField("files_before", filesBefore).WithField("files_after", filesAfter).Debug("partition pruning")

	plan := &ScanPlan{Schema: projectSchema(p.Schema, projection), residual: residual, filesUsed: len(tasks)}
	for _, task := range tasks {
		if p.Reader == nil {
			continue
		}
		rows, err := p.Reader.Read(ctx, task, projection, limit)
		if err != nil {
			return nil, nil, err
		}
		plan.readers = append(plan.readers, rows)
	}

	reports := make([]FilterReport, 0, len(filters))
	for _, f := range pushable {
		reports = append(reports, FilterReport{Filter: f, Support: SupportInexact})
	}
	for _, f := range residual {
		reports = append(reports, FilterReport{Filter: f, Support: SupportUnsupported})
	}
	return plan, reports, nil
}

// prune eliminates file-scan-tasks whose partition map contradicts any
// partition-scoped predicate (spec.md §4.11 step 4), returning the
// survivors plus the before/after counts for observability.
func prune(tasks []FileScanTask, partitionPredicates []Expr) (survivors []FileScanTask, before, after int) {
	before = len(tasks)
	if len(partitionPredicates) == 0 {
		return tasks, before, before
	}
	for _, t := range tasks {
		if satisfiesAll(t.PartitionValues, partitionPredicates) {
			survivors = append(survivors, t)
		}
	}
	return survivors, before, len(survivors)
}

func satisfiesAll(partition map[string]interface{}, predicates []Expr) bool {
	for _, p := range predicates {
		if !satisfies(partition, p) {
			return false
		}
	}
	return true
}

// satisfies evaluates a single pushable predicate against a partition
// value map. A column absent from the partition map (not a partition
// source column despite passing PartitionColumns' filter) never
// contradicts the task, so pruning stays conservative.
func satisfies(partition map[string]interface{}, e Expr) bool {
	switch v := e.(type) {
	case Comparison:
		val, ok := partition[columnKey(v.Column)]
		if !ok {
			return true
		}
		return compare(val, v.Op, v.Literal)
	case IsNull:
		val, ok := partition[columnKey(v.Column)]
		return !ok || val == nil
	case IsNotNull:
		val, ok := partition[columnKey(v.Column)]
		return !ok || val != nil
	case Not:
		return !satisfies(partition, v.Child)
	case Cast:
		return satisfies(partition, v.Child)
	case And:
		return satisfies(partition, v.Left) && satisfies(partition, v.Right)
	default:
		return true
	}
}

func compare(val interface{}, op Op, lit interface{}) bool {
	vf, vok := toFloat(val)
	lf, lok := toFloat(lit)
	if vok && lok {
		switch op {
		case OpEq:
			return vf == lf
		case OpNeq:
			return vf != lf
		case OpLt:
			return vf < lf
		case OpLte:
			return vf <= lf
		case OpGt:
			return vf > lf
		case OpGte:
			return vf >= lf
		}
	}
	vs, vsok := val.(string)
	ls, lsok := lit.(string)
	if vsok && lsok {
		switch op {
		case OpEq:
			return vs == ls
		case OpNeq:
			return vs != ls
		case OpLt:
			return vs < ls
		case OpLte:
			return vs <= ls
		case OpGt:
			return vs > ls
		case OpGte:
			return vs >= ls
		}
	}
	return true // can't compare: don't prune
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// projectSchema narrows schema to the requested column names, preserving
// field order from the source schema. An empty projection means "all
// columns".
func projectSchema(schema *iceberg.Schema, projection []string) *iceberg.Schema {
	if schema == nil || len(projection) == 0 {
		return schema
	}
	want := make(map[string]bool, len(projection))
	for _, p := range projection {
		want[p] = true
	}
	var fields []iceberg.NestedField
	for _, f := range schema.Fields() {
		if want[f.Name] {
			fields = append(fields, f)
		}
	}
	return iceberg.NewSchema(schema.ID, fields...)
}

// Close releases every per-file reader the plan opened.
func (p *ScanPlan) Close() error {
	var firstErr error
	for _, r := range p.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FilesUsed reports how many files survived pruning (whether or not a
// FileReader opened them).
func (p *ScanPlan) FilesUsed() int { return p.filesUsed }

// Residual reports the residual filters the plan's rows must still be
// checked against (spec.md §4.11 step 6).
func (p *ScanPlan) Residual() []Expr { return p.residual }
