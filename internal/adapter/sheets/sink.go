package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	newTabRows          = 1000
	newTabCols          = 25
)

var _ port.Sink = (*Sink)(nil)

// Sink 把结果表写入 Google 表格的同名工作表：先清空再从 A1 整体写入
type Sink struct {
	sheets        *sheets.Service
	drive         *drive.Service
	spreadsheetID string
	name          string
	logger        *zap.Logger
}

// LoadCredentials accepts inline service-account JSON or a path to it.
func LoadCredentials(value string) ([]byte, error) {
	if value == "" {
		return nil, common.NewError(common.ErrCodeConfig, "GCP_CREDENTIALS is not set")
	}

	var raw []byte
	if strings.HasPrefix(strings.TrimSpace(value), "{") {
		raw = []byte(value)
	} else {
		data, err := os.ReadFile(value)
		if err != nil {
			return nil, common.WrapError(common.ErrCodeConfig, "read credentials file", err)
		}
		raw = data
	}

	if !json.Valid(raw) {
		return nil, common.ClassifiedError(common.ErrCodeConfig, common.KindMalformed, 0, "credentials are not valid JSON", nil)
	}
	return raw, nil
}

// New 使用服务账号凭证创建 Sheets / Drive 客户端
func New(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger, extra ...option.ClientOption) (*Sink, error) {
	if cfg.SpreadsheetID == "" && cfg.Name == "" {
		return nil, common.NewError(common.ErrCodeConfig, "GOOGLE_SHEET_ID or GOOGLE_SHEET_NAME is required")
	}

	opts := extra
	if len(opts) == 0 {
		creds, err := LoadCredentials(cfg.Credentials)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{
			option.WithCredentialsJSON(creds),
			option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
		}
	}

	sheetsSrv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "create sheets service", err)
	}
	driveSrv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "create drive service", err)
	}

	return newSink(sheetsSrv, driveSrv, cfg, logger), nil
}

func newSink(sheetsSrv *sheets.Service, driveSrv *drive.Service, cfg config.SheetsConfig, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		sheets:        sheetsSrv,
		drive:         driveSrv,
		spreadsheetID: cfg.SpreadsheetID,
		name:          cfg.Name,
		logger:        logger.With(zap.String("component", "sheets_sink")),
	}
}

// Persist 清空工作表并写入表头和全部行
func (s *Sink) Persist(ctx context.Context, table *domain.Table) error {
	id, err := s.spreadsheet(ctx, true)
	if err != nil {
		return err
	}
	if err := s.ensureTab(ctx, id, table.Name); err != nil {
		return err
	}

	tab := tabRange(table.Name)
	if _, err := s.sheets.Spreadsheets.Values.Clear(id, tab, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return common.WrapError(common.ErrCodeSink, "clear "+table.Name, err)
	}

	values := make([][]interface{}, 0, table.Len()+1)
	header := make([]interface{}, 0, len(table.Columns))
	for _, col := range table.Columns {
		header = append(header, col)
	}
	values = append(values, header)
	for _, row := range table.Rows {
		values = append(values, row)
	}

	_, err = s.sheets.Spreadsheets.Values.Update(id, tab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return common.WrapError(common.ErrCodeSink, "write "+table.Name, err)
	}

	s.logger.Info("tab replaced", zap.String("tab", table.Name), zap.Int("rows", table.Len()))
	return nil
}

// LoadStarred 读回 starred 工作表；表格或工作表不存在时返回空
func (s *Sink) LoadStarred(ctx context.Context, name string) ([]domain.StarredRow, error) {
	id, err := s.spreadsheet(ctx, false)
	if err != nil || id == "" {
		return nil, err
	}
	titles, err := s.tabs(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contains(titles, name) {
		return nil, nil
	}

	resp, err := s.sheets.Spreadsheets.Values.Get(id, tabRange(name)).Context(ctx).Do()
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "read "+name, err)
	}
	return decodeStarred(resp.Values), nil
}

// Tables 列出表格中的工作表
func (s *Sink) Tables(ctx context.Context) ([]string, error) {
	id, err := s.spreadsheet(ctx, false)
	if err != nil || id == "" {
		return nil, err
	}
	return s.tabs(ctx, id)
}

func (s *Sink) Close() error {
	return nil
}

// spreadsheet resolves the spreadsheet ID: configured ID, else a Drive lookup by name,
// else (when create is set) a new spreadsheet.
func (s *Sink) spreadsheet(ctx context.Context, create bool) (string, error) {
	if s.spreadsheetID != "" {
		return s.spreadsheetID, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(s.name, "'", `\'`), spreadsheetMimeType)
	list, err := s.drive.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", common.WrapError(common.ErrCodeSink, "find spreadsheet "+s.name, err)
	}
	if len(list.Files) > 0 {
		s.spreadsheetID = list.Files[0].Id
		return s.spreadsheetID, nil
	}
	if !create {
		return "", nil
	}

	created, err := s.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: s.name},
	}).Context(ctx).Do()
	if err != nil {
		return "", common.WrapError(common.ErrCodeSink, "create spreadsheet "+s.name, err)
	}
	s.logger.Info("spreadsheet created", zap.String("name", s.name), zap.String("id", created.SpreadsheetId))
	s.spreadsheetID = created.SpreadsheetId
	return s.spreadsheetID, nil
}

func (s *Sink) tabs(ctx context.Context, id string) ([]string, error) {
	ss, err := s.sheets.Spreadsheets.Get(id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "open spreadsheet "+id, err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (s *Sink) ensureTab(ctx context.Context, id, tab string) error {
	titles, err := s.tabs(ctx, id)
	if err != nil {
		return err
	}
	if contains(titles, tab) {
		return nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: tab,
					GridProperties: &sheets.GridProperties{
						RowCount:    newTabRows,
						ColumnCount: newTabCols,
					},
				},
			},
		}},
	}
	if _, err := s.sheets.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do(); err != nil {
		return common.WrapError(common.ErrCodeSink, "add tab "+tab, err)
	}
	s.logger.Info("tab created", zap.String("tab", tab))
	return nil
}

func tabRange(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
