package report

import (
	"strings"
	"time"
)

const (
	// DefaultTitle 模型没有给出标题时使用。
	DefaultTitle = "Tatortbericht"
	// DefaultOfficer 模型没有给出负责警员时使用。
	DefaultOfficer = "Beamter Mustermann"
	// UnknownValue 表示模型无法确定的字段。
	UnknownValue = "[Nicht bekannt]"
)

// Report 持久化的报告记录，保存后除删除外不可修改。
type Report struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	RawText   string     `json:"rawText"`
	Location  string     `json:"location"`
	Date      *time.Time `json:"date,omitempty"`
	Officer   string     `json:"officer"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NormalizeTags trims every tag and drops empty ones, keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Clone 返回深拷贝，防止调用方修改存储中的切片与指针。
func (r Report) Clone() Report {
	cp := r
	if r.Tags != nil {
		cp.Tags = append([]string(nil), r.Tags...)
	}
	if r.Date != nil {
		d := *r.Date
		cp.Date = &d
	}
	return cp
}
