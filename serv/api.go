package serv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/qbloq/qmap"
)

const maxReadBytes = 1 << 20 // 1MB

// apiOp is one operation of a query request body.
type apiOp struct {
	Op      string `json:"op"`
	Table   string `json:"table"`
	Joins   any    `json:"joins,omitempty"`
	Columns any    `json:"columns,omitempty"`
	Where   any    `json:"where,omitempty"`
	Data    any    `json:"data,omitempty"`
	Column  string `json:"column,omitempty"`
}

type apiResult struct {
	Data     any    `json:"data,omitempty"`
	Affected int64  `json:"affected,omitempty"`
	LastID   int64  `json:"last_id,omitempty"`
	SQL      string `json:"sql,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

var opKinds = map[string]qmap.OpKind{
	"select":  qmap.OpSelect,
	"get":     qmap.OpGet,
	"has":     qmap.OpHas,
	"count":   qmap.OpCount,
	"sum":     qmap.OpSum,
	"avg":     qmap.OpAvg,
	"min":     qmap.OpMin,
	"max":     qmap.OpMax,
	"insert":  qmap.OpInsert,
	"update":  qmap.OpUpdate,
	"delete":  qmap.OpDelete,
	"replace": qmap.OpReplace,
}

// queryHandler runs one or more declarative operations from a JSON body.
// The body is a single operation object or a list of them; a list runs
// concurrently as a batch.
func queryHandler(s1 *HttpService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := s1.Load().(*qmapService)

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(io.LimitReader(r.Body, maxReadBytes))
		if err != nil {
			badRequest(w, err)
			return
		}

		ops, single, err := decodeOps(b)
		if err != nil {
			badRequest(w, err)
			return
		}

		results, err := s.qm.Batch(r.Context(), ops)
		if err != nil {
			s.renderErr(w, err)
			return
		}

		out := make([]apiResult, len(results))
		for i, res := range results {
			out[i] = apiResult{Data: res.Data, Affected: res.Affected, LastID: res.LastID}
		}

		w.Header().Set("Content-Type", "application/json")
		if s.conf.CacheControl != "" {
			w.Header().Set("Cache-Control", s.conf.CacheControl)
		}
		if single {
			json.NewEncoder(w).Encode(out[0]) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(out) //nolint:errcheck
	})
}

func decodeOps(b []byte) ([]qmap.Op, bool, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, false, err
	}

	single := true
	var in []apiOp
	if len(raw) > 0 && raw[0] == '[' {
		single = false
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, false, err
		}
	} else {
		var one apiOp
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, false, err
		}
		in = []apiOp{one}
	}
	if len(in) == 0 {
		return nil, false, errors.New("empty request")
	}

	ops := make([]qmap.Op, 0, len(in))
	for _, op := range in {
		kind, ok := opKinds[op.Op]
		if !ok {
			return nil, false, fmt.Errorf("unknown op %q", op.Op)
		}
		if op.Table == "" {
			return nil, false, errors.New("missing table")
		}
		ops = append(ops, qmap.Op{
			Kind:    kind,
			Table:   op.Table,
			Joins:   op.Joins,
			Columns: op.Columns,
			Where:   op.Where,
			Data:    op.Data,
			Column:  op.Column,
		})
	}
	return ops, single, nil
}

func badRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(apiError{Error: err.Error()}) //nolint:errcheck
}

func (s *qmapService) renderErr(w http.ResponseWriter, err error) {
	if s.logLevel >= logLevelError {
		s.log.Error(err)
	}

	code := http.StatusBadRequest
	switch {
	case errors.Is(err, qmap.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, qmap.ErrExecution):
		code = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(apiError{Error: err.Error()}) //nolint:errcheck
}

// healthCheckHandler pings the database
func healthCheckHandler(s1 *HttpService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := s1.Load().(*qmapService)

		if s.db != nil {
			if err := s.db.PingContext(r.Context()); err != nil {
				if s.logLevel >= logLevelWarn {
					s.log.Warnf("health: db ping: %s", err)
				}
				http.Error(w, "ERROR", http.StatusInternalServerError)
				return
			}
		}
		w.Write([]byte("OK")) //nolint:errcheck
	})
}
