// Package client 考勤服务的 Go 客户端：类型化 REST 调用与客户端状态仓库
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"classroom-attendance/internal/dto"
)

// APIError 服务端返回的错误信封；Message 为可直接展示给用户的文案
type APIError struct {
	Status  int
	Code    int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// envelope 与 pkg/response.Response 对应，Data 延迟解码
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

// API /api/v1 的类型化 HTTP 客户端
type API struct {
	baseURL string
	http    *http.Client
}

// Option API 构造选项
type Option func(*API)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.http = c }
}

// NewAPI 创建客户端；baseURL 形如 http://localhost:8080
func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ────────────────────── Students ──────────────────────

func (a *API) ListStudents(ctx context.Context) ([]dto.StudentResponse, error) {
	var out []dto.StudentResponse
	_, err := a.doJSON(ctx, http.MethodGet, "/students", nil, nil, &out)
	return out, err
}

func (a *API) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	var out dto.StudentResponse
	if _, err := a.doJSON(ctx, http.MethodPost, "/students", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	var out dto.StudentResponse
	if _, err := a.doJSON(ctx, http.MethodPut, "/students/"+url.PathEscape(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteStudent(ctx context.Context, id string) (*dto.DeleteStudentResponse, error) {
	var out dto.DeleteStudentResponse
	if _, err := a.doJSON(ctx, http.MethodDelete, "/students/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) BulkCreateStudents(ctx context.Context, reqs []dto.CreateStudentRequest) ([]dto.StudentResponse, error) {
	var out []dto.StudentResponse
	_, err := a.doJSON(ctx, http.MethodPost, "/students/bulk", nil, reqs, &out)
	return out, err
}

// ImportStudentsCSV 以 multipart 上传 CSV
func (a *API) ImportStudentsCSV(ctx context.Context, filename string, r io.Reader) (*dto.ImportStudentsResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/students/import", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out dto.ImportStudentsResponse
	if _, err := a.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportStudentsCSV 下载花名册 CSV
func (a *API) ExportStudentsCSV(ctx context.Context) ([]byte, error) {
	data, _, err := a.download(ctx, "/students/export", nil)
	return data, err
}

// TemplateCSV 下载花名册模板
func (a *API) TemplateCSV(ctx context.Context) ([]byte, error) {
	data, _, err := a.download(ctx, "/students/template", nil)
	return data, err
}

// ────────────────────── Attendance ──────────────────────

func (a *API) ListAttendance(ctx context.Context, date, period string) ([]dto.AttendanceResponse, error) {
	var out []dto.AttendanceResponse
	q := url.Values{"date": {date}, "period": {period}}
	_, err := a.doJSON(ctx, http.MethodGet, "/attendance", q, nil, &out)
	return out, err
}

func (a *API) DayHours(ctx context.Context, date string) (map[string]float64, error) {
	out := map[string]float64{}
	_, err := a.doJSON(ctx, http.MethodGet, "/attendance/hours", url.Values{"date": {date}}, nil, &out)
	return out, err
}

func (a *API) Stats(ctx context.Context, date, period string) (*dto.AttendanceStatsResponse, error) {
	var out dto.AttendanceStatsResponse
	q := url.Values{"date": {date}, "period": {period}}
	if _, err := a.doJSON(ctx, http.MethodGet, "/attendance/stats", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAttendance 返回写入后的记录及服务端提示文案
func (a *API) MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*dto.AttendanceResponse, string, error) {
	var out dto.AttendanceResponse
	msg, err := a.doJSON(ctx, http.MethodPut, "/attendance", nil, req, &out)
	if err != nil {
		return nil, "", err
	}
	return &out, msg, nil
}

func (a *API) BulkMarkAttendance(ctx context.Context, req dto.BulkMarkAttendanceRequest) (*dto.BulkMarkResponse, error) {
	var out dto.BulkMarkResponse
	if _, err := a.doJSON(ctx, http.MethodPost, "/attendance/bulk", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportAttendance 下载当日考勤 xlsx，返回内容与建议文件名
func (a *API) ExportAttendance(ctx context.Context, date string) ([]byte, string, error) {
	return a.download(ctx, "/export/attendance", url.Values{"date": {date}})
}

// SweepOrphans 触发一次孤儿考勤清理
func (a *API) SweepOrphans(ctx context.Context) (int64, error) {
	var out dto.SweepResponse
	if _, err := a.doJSON(ctx, http.MethodPost, "/maintenance/sweep-orphans", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

// ── 内部方法 ──

// doJSON 发送 JSON 请求并把信封中的 data 解码到 out，返回信封 message
func (a *API) doJSON(ctx context.Context, method, path string, query url.Values, in, out interface{}) (string, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.url(path, query), body)
	if err != nil {
		return "", err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return a.send(req, out)
}

func (a *API) send(req *http.Request, out interface{}) (string, error) {
	resp, err := a.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return "", &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: env.Details}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decode data: %w", err)
		}
	}
	return env.Message, nil
}

// download 获取文件类响应；错误时仍按 JSON 信封解析
func (a *API) download(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url(path, query), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode >= 400 {
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			return nil, "", &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: env.Details}
		}
		return nil, "", &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return raw, attachmentName(resp.Header.Get("Content-Disposition")), nil
}

func (a *API) url(path string, query url.Values) string {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// attachmentName 从 Content-Disposition 取文件名，兼容 filename*=UTF-8''
func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
