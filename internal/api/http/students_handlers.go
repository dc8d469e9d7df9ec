package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/audit"
	"github.com/mind-engage/eduquest/internal/portal"
)

type studentReq struct {
	Name         string `json:"name" validate:"required"`
	RollNumber   string `json:"rollNumber" validate:"required"`
	DOB          string `json:"dob" validate:"required,datetime=2006-01-02"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

func (s studentReq) student() portal.Student {
	return portal.Student{
		Name:         strings.TrimSpace(s.Name),
		RollNumber:   strings.TrimSpace(s.RollNumber),
		DOB:          strings.TrimSpace(s.DOB),
		ProfilePhoto: strings.TrimSpace(s.ProfilePhoto),
	}
}

// GET /api/admin/students
func ListStudentsHandler(repo *portal.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := repo.Students(r.Context())
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /api/admin/students
func CreateStudentHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studentReq
		if !decode(w, r, &req) {
			return
		}
		s, err := d.Repo.AddStudent(r.Context(), req.student())
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		d.record(r.Context(), audit.StudentRegistered, s.RollNumber, s)
		writeJSON(w, http.StatusCreated, s)
	}
}

// POST /api/admin/students/bulk
//
// Accepts either a multipart file= (CSV or JSON) or a raw JSON array. CSV
// needs a header row with rollNumber, name and dob; profilePhoto is optional.
func BulkUpsertStudentsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []studentReq
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, "file required", "")
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by first byte
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				writeError(w, http.StatusBadRequest, "empty file", "")
				return
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				writeError(w, http.StatusInternalServerError, "rewind upload", "")
				return
			}
			if buf[0] == '[' || buf[0] == '{' {
				if err := json.NewDecoder(f).Decode(&rows); err != nil {
					writeError(w, http.StatusBadRequest, "bad json", "")
					return
				}
			} else {
				rs, err := parseStudentsCSV(f)
				if err != nil {
					writeError(w, http.StatusBadRequest, "bad csv: "+err.Error(), "")
					return
				}
				rows = rs
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				writeError(w, http.StatusBadRequest, "expected JSON array or multipart file", "")
				return
			}
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"inserted": 0, "updated": 0})
			return
		}

		students := make([]portal.Student, 0, len(rows))
		for i := range rows {
			if err := validate.Struct(rows[i]); err != nil {
				writeError(w, http.StatusBadRequest, "row "+strconv.Itoa(i+1)+": "+validationMessage(err), "")
				return
			}
			students = append(students, rows[i].student())
		}
		ins, upd, err := d.Repo.UpsertStudents(r.Context(), students)
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		d.record(r.Context(), audit.StudentRegistered, "bulk", map[string]int{"inserted": ins, "updated": upd})
		writeJSON(w, http.StatusOK, map[string]any{"inserted": ins, "updated": upd})
	}
}

func parseStudentsCSV(r io.Reader) ([]studentReq, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if i, ok := idx["roll"]; ok {
		if _, dup := idx["rollnumber"]; !dup {
			idx["rollnumber"] = i
		}
	}
	for _, k := range []string{"rollnumber", "name", "dob"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []studentReq
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := studentReq{
			RollNumber: rec[idx["rollnumber"]],
			Name:       rec[idx["name"]],
			DOB:        rec[idx["dob"]],
		}
		if i, ok := idx["profilephoto"]; ok {
			row.ProfilePhoto = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type updateStudentReq struct {
	Name                 string   `json:"name" validate:"required"`
	DOB                  string   `json:"dob" validate:"required,datetime=2006-01-02"`
	ProfilePhoto         string   `json:"profilePhoto,omitempty"`
	AssignedSubjectCodes []string `json:"assignedSubjectCodes,omitempty"`
}

// PUT /api/admin/students/{roll}. Omitted photo and assignments keep their
// current values.
func UpdateStudentHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll := chi.URLParam(r, "roll")
		var req updateStudentReq
		if !decode(w, r, &req) {
			return
		}
		cur, err := d.Repo.StudentByRoll(r.Context(), roll)
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		cur.Name, cur.DOB = strings.TrimSpace(req.Name), strings.TrimSpace(req.DOB)
		if req.ProfilePhoto != "" {
			cur.ProfilePhoto = req.ProfilePhoto
		}
		if req.AssignedSubjectCodes != nil {
			cur.AssignedSubjectCodes = req.AssignedSubjectCodes
		}
		if err := d.Repo.UpdateStudent(r.Context(), cur); err != nil {
			fail(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, cur)
	}
}

// DELETE /api/admin/students/{roll}. The student's attempts are kept.
func DeleteStudentHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll := chi.URLParam(r, "roll")
		if err := d.Repo.DeleteStudent(r.Context(), roll); err != nil {
			fail(w, d.Log, err)
			return
		}
		d.record(r.Context(), audit.StudentDeleted, roll, nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

type assignReq struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/admin/students/{roll}/subjects {code}
func AssignSubjectHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll := chi.URLParam(r, "roll")
		var req assignReq
		if !decode(w, r, &req) {
			return
		}
		if _, err := d.Repo.Subject(r.Context(), req.Code); err != nil {
			fail(w, d.Log, err)
			return
		}
		if err := d.Repo.AssignSubject(r.Context(), roll, req.Code); err != nil {
			fail(w, d.Log, err)
			return
		}
		d.record(r.Context(), audit.SubjectAssigned, portal.AttemptKey{Roll: roll, Code: req.Code}.String(), nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /api/admin/students/{roll}/subjects/{code}
func UnassignSubjectHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll, code := chi.URLParam(r, "roll"), chi.URLParam(r, "code")
		if err := d.Repo.UnassignSubject(r.Context(), roll, code); err != nil {
			fail(w, d.Log, err)
			return
		}
		d.record(r.Context(), audit.SubjectUnassigned, portal.AttemptKey{Roll: roll, Code: code}.String(), nil)
		w.WriteHeader(http.StatusNoContent)
	}
}
