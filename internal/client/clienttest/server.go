// Package clienttest 提供内存版 /api/v1 服务，供 client 与 view 包测试使用
package clienttest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"classroom-attendance/internal/attendance"
	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/rostercsv"
)

// Server 内存实现的考勤服务，响应信封与错误码与正式服务一致
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	capacity int
	seq      int
	students []dto.StudentResponse
	records  map[string]dto.AttendanceResponse
	hits     map[string]int
	failNext map[string]int
	onNext   map[string]func()
}

// NewServer 启动服务并在测试结束时关闭
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		capacity: attendance.Capacity,
		records:  map[string]dto.AttendanceResponse{},
		hits:     map[string]int{},
		failNext: map[string]int{},
		onNext:   map[string]func(){},
	}

	mux := http.NewServeMux()
	s.route(mux, "GET /api/v1/students", "students.list", s.listStudents)
	s.route(mux, "POST /api/v1/students", "students.create", s.createStudent)
	s.route(mux, "PUT /api/v1/students/{id}", "students.update", s.updateStudent)
	s.route(mux, "DELETE /api/v1/students/{id}", "students.delete", s.deleteStudent)
	s.route(mux, "POST /api/v1/students/import", "students.import", s.importStudents)
	s.route(mux, "GET /api/v1/students/export", "students.export", s.exportStudents)
	s.route(mux, "GET /api/v1/students/template", "students.template", s.template)
	s.route(mux, "GET /api/v1/attendance", "attendance.list", s.listAttendance)
	s.route(mux, "GET /api/v1/attendance/hours", "attendance.hours", s.dayHours)
	s.route(mux, "PUT /api/v1/attendance", "attendance.mark", s.mark)
	s.route(mux, "POST /api/v1/attendance/bulk", "attendance.bulk", s.bulkMark)
	s.route(mux, "GET /api/v1/export/attendance", "export.attendance", s.exportAttendance)
	s.route(mux, "POST /api/v1/maintenance/sweep-orphans", "maintenance.sweep", s.sweep)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// Hits 返回某路由被调用的次数（名称形如 students.list）
func (s *Server) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

// FailNext 令某路由接下来的 n 次调用返回 500
func (s *Server) FailNext(name string, n int) {
	s.mu.Lock()
	s.failNext[name] = n
	s.mu.Unlock()
}

// OnNext 在某路由下一次被调用、处理请求之前执行 fn 一次
func (s *Server) OnNext(name string, fn func()) {
	s.mu.Lock()
	s.onNext[name] = fn
	s.mu.Unlock()
}

// Seed 追加 n 个学生（Student N / 100+N）
func (s *Server) Seed(n int) []dto.StudentResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rostercsv.Template(n) {
		s.add(row.Name, row.RollNumber, row.Email)
	}
	return s.snapshot()
}

// Students 当前花名册
func (s *Server) Students() []dto.StudentResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Record 读取一条考勤
func (s *Server) Record(date, period, studentID string) (dto.AttendanceResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key(date, period, studentID)]
	return r, ok
}

// ── 路由处理 ──

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[name]++
		fail := s.failNext[name] > 0
		if fail {
			s.failNext[name]--
		}
		hook := s.onNext[name]
		delete(s.onNext, name)
		s.mu.Unlock()

		if hook != nil {
			hook()
		}

		if fail {
			write(w, http.StatusInternalServerError, 50000, "Internal server error", nil)
			return
		}
		h(w, r)
	})
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	write(w, http.StatusOK, 0, "success", s.snapshot())
}

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		write(w, http.StatusBadRequest, 10001, "Invalid request parameters", nil)
		return
	}
	if req.Name == "" || req.RollNumber == "" {
		write(w, http.StatusBadRequest, 20002, "Name and rollNumber are required", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.students) >= s.capacity {
		write(w, http.StatusBadRequest, 20005, "Classroom capacity reached", nil)
		return
	}
	if s.rollTaken(req.RollNumber, "") {
		write(w, http.StatusConflict, 20006, "Roll number already exists", nil)
		return
	}
	write(w, http.StatusCreated, 0, "success", s.add(req.Name, req.RollNumber, req.Email))
}

func (s *Server) updateStudent(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		write(w, http.StatusBadRequest, 10001, "Invalid request parameters", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(r.PathValue("id"))
	if i < 0 {
		write(w, http.StatusNotFound, 20001, "Student not found", nil)
		return
	}
	st := s.students[i]
	if req.Name != nil {
		st.Name = *req.Name
	}
	if req.RollNumber != nil {
		if s.rollTaken(*req.RollNumber, st.ID) {
			write(w, http.StatusConflict, 20006, "Roll number already exists", nil)
			return
		}
		st.RollNumber = *req.RollNumber
	}
	if req.Email != nil {
		st.Email = *req.Email
	}
	if st.Name == "" || st.RollNumber == "" {
		write(w, http.StatusBadRequest, 20002, "Name and rollNumber are required", nil)
		return
	}
	s.students[i] = st
	write(w, http.StatusOK, 0, "success", st)
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		write(w, http.StatusNotFound, 20001, "Student not found", nil)
		return
	}
	s.students = append(s.students[:i], s.students[i+1:]...)
	var removed int64
	for k, rec := range s.records {
		if rec.StudentID == id {
			delete(s.records, k)
			removed++
		}
	}
	write(w, http.StatusOK, 0, "Student deleted", dto.DeleteStudentResponse{Message: "Student deleted", AttendanceRemoved: removed})
}

func (s *Server) importStudents(w http.ResponseWriter, r *http.Request) {
	f, _, err := r.FormFile("file")
	if err != nil {
		write(w, http.StatusBadRequest, 10001, "CSV file is required", nil)
		return
	}
	defer f.Close()

	rows, err := rostercsv.Decode(f)
	if err != nil {
		write(w, http.StatusBadRequest, 22001, "Unable to read CSV file", nil)
		return
	}
	valid := rostercsv.ValidRows(rows)
	if len(valid) == 0 {
		write(w, http.StatusBadRequest, 22002, "No valid student records found.", nil)
		return
	}
	if len(valid) > s.capacity {
		write(w, http.StatusBadRequest, 22003, fmt.Sprintf("Cannot import more than %d students.", s.capacity), nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.students)+len(valid) > s.capacity {
		write(w, http.StatusBadRequest, 20005, "Classroom capacity reached", nil)
		return
	}
	created := make([]dto.StudentResponse, 0, len(valid))
	for _, row := range valid {
		created = append(created, s.add(row.Name, row.RollNumber, row.Email))
	}
	msg := fmt.Sprintf("Successfully imported %d student records.", len(created))
	write(w, http.StatusCreated, 0, msg, dto.ImportStudentsResponse{Imported: len(created), Message: msg, Students: created})
}

func (s *Server) exportStudents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]rostercsv.Row, 0, len(s.students))
	for _, st := range s.students {
		rows = append(rows, rostercsv.Row{Name: st.Name, RollNumber: st.RollNumber, Email: st.Email})
	}
	s.mu.Unlock()
	writeCSV(w, "students.csv", rows)
}

func (s *Server) template(w http.ResponseWriter, r *http.Request) {
	writeCSV(w, "students_template.csv", rostercsv.Template(s.capacity))
}

func (s *Server) listAttendance(w http.ResponseWriter, r *http.Request) {
	date, period := r.URL.Query().Get("date"), r.URL.Query().Get("period")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []dto.AttendanceResponse{}
	for _, rec := range s.records {
		if rec.Date == date && rec.Period == period {
			out = append(out, rec)
		}
	}
	write(w, http.StatusOK, 0, "success", out)
}

func (s *Server) dayHours(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]float64{}
	for _, rec := range s.records {
		if rec.Date == date {
			out[rec.StudentID] += rec.Hours
		}
	}
	write(w, http.StatusOK, 0, "success", out)
}

func (s *Server) mark(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		write(w, http.StatusBadRequest, 10001, "Invalid request parameters", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(req.StudentID) < 0 {
		write(w, http.StatusNotFound, 20001, "Student not found", nil)
		return
	}
	rec, err := buildRecord(req.Date, req.Period, req.StudentID, req.Status, req.TimeRange)
	if err != nil {
		write(w, http.StatusBadRequest, 21004, err.Error(), nil)
		return
	}
	s.records[key(req.Date, req.Period, req.StudentID)] = rec
	write(w, http.StatusOK, 0, "Attendance saved!", rec)
}

func (s *Server) bulkMark(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkMarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.StudentIDs) == 0 {
		write(w, http.StatusBadRequest, 10001, "Invalid request parameters", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range req.StudentIDs {
		if s.indexOf(id) < 0 {
			write(w, http.StatusNotFound, 20001, "Student not found", nil)
			return
		}
	}
	for _, id := range req.StudentIDs {
		rec, err := buildRecord(req.Date, req.Period, id, req.Status, req.TimeRange)
		if err != nil {
			write(w, http.StatusBadRequest, 21004, err.Error(), nil)
			return
		}
		s.records[key(req.Date, req.Period, id)] = rec
	}
	write(w, http.StatusOK, 0, "Bulk attendance saved!", dto.BulkMarkResponse{Updated: len(req.StudentIDs), Message: "Bulk attendance saved!"})
}

func (s *Server) exportAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''attendance_%s.xlsx", date))
	w.Write([]byte("xlsx:" + date))
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for k, rec := range s.records {
		if s.indexOf(rec.StudentID) < 0 {
			delete(s.records, k)
			removed++
		}
	}
	write(w, http.StatusOK, 0, "success", dto.SweepResponse{Removed: removed})
}

// PutRecord 直接写入一条考勤（不校验学生是否存在）
func (s *Server) PutRecord(rec dto.AttendanceResponse) {
	s.mu.Lock()
	s.records[key(rec.Date, rec.Period, rec.StudentID)] = rec
	s.mu.Unlock()
}

// ── 内部方法（调用方持锁）──

func (s *Server) add(name, roll, email string) dto.StudentResponse {
	s.seq++
	st := dto.StudentResponse{ID: fmt.Sprintf("s%d", s.seq), Name: name, RollNumber: roll, Email: email}
	s.students = append(s.students, st)
	return st
}

func (s *Server) snapshot() []dto.StudentResponse {
	out := make([]dto.StudentResponse, len(s.students))
	copy(out, s.students)
	return out
}

func (s *Server) indexOf(id string) int {
	for i, st := range s.students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) rollTaken(roll, exceptID string) bool {
	for _, st := range s.students {
		if st.RollNumber == roll && st.ID != exceptID {
			return true
		}
	}
	return false
}

func buildRecord(date, period, studentID, status string, tr *dto.TimeRange) (dto.AttendanceResponse, error) {
	rec := dto.AttendanceResponse{Date: date, Period: period, StudentID: studentID, Status: status}
	if status != "present" {
		return rec, nil
	}
	if tr == nil {
		tr = &dto.TimeRange{StartTime: "09:00", EndTime: "11:00"}
	}
	hours, err := attendance.HoursBetween(tr.StartTime, tr.EndTime)
	if err != nil {
		return rec, err
	}
	rec.Hours = hours
	rec.TimeRange = tr
	return rec, nil
}

func key(date, period, studentID string) string {
	return date + ":" + period + ":" + studentID
}

func write(w http.ResponseWriter, status, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "message": message, "data": data})
}

func writeCSV(w http.ResponseWriter, filename string, rows []rostercsv.Row) {
	var buf bytes.Buffer
	if err := rostercsv.Encode(&buf, rows); err != nil {
		write(w, http.StatusInternalServerError, 50000, "Internal server error", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(buf.Bytes())
}
