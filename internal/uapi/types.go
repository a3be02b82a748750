package uapi

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ScalarKind tells how a UAPI field was encoded on the wire.
type ScalarKind int

const (
	ScalarAbsent ScalarKind = iota
	ScalarString
	ScalarNumber
	ScalarOther
)

// decimalPattern accepts unsigned integers and decimals with at most one dot.
var decimalPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// Scalar is a UAPI field that cPanel encodes inconsistently, sometimes as a
// JSON string and sometimes as a JSON number. Null and missing fields are absent.
type Scalar struct {
	kind ScalarKind
	raw  string
}

// StringScalar builds a Scalar as if it had been decoded from a JSON string.
func StringScalar(s string) Scalar {
	return Scalar{kind: ScalarString, raw: s}
}

// NumberScalar builds a Scalar as if it had been decoded from a JSON number.
func NumberScalar(f float64) Scalar {
	return Scalar{kind: ScalarNumber, raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = Scalar{}
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar{kind: ScalarString, raw: str}
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err == nil {
			*s = Scalar{kind: ScalarNumber, raw: num.String()}
			return nil
		}
		*s = Scalar{kind: ScalarOther, raw: string(data)}
	}
	return nil
}

func (s Scalar) Kind() ScalarKind { return s.kind }

func (s Scalar) Present() bool { return s.kind != ScalarAbsent }

func (s Scalar) IsString() bool { return s.kind == ScalarString }

// String returns the decoded text of a string, the literal of a number, or "".
func (s Scalar) String() string { return s.raw }

// Decimal reports the value of a JSON number or of a string holding a plain
// unsigned integer or decimal. Signs, exponents and whitespace are rejected
// for strings.
func (s Scalar) Decimal() (float64, bool) {
	switch s.kind {
	case ScalarNumber:
		return s.parse(s.raw)
	case ScalarString:
		if !decimalPattern.MatchString(s.raw) {
			return 0, false
		}
		return s.parse(s.raw)
	default:
		return 0, false
	}
}

// Float is the lenient conversion: any string strconv.ParseFloat accepts
// after trimming spaces.
func (s Scalar) Float() (float64, bool) {
	switch s.kind {
	case ScalarNumber, ScalarString:
		return s.parse(strings.TrimSpace(s.raw))
	default:
		return 0, false
	}
}

func (s Scalar) parse(text string) (float64, bool) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// StatItem is one entry of StatsBar::get_stats.
type StatItem struct {
	Name    string `json:"name"`
	Count   Scalar `json:"_count"`
	Value   Scalar `json:"value"`
	Units   Scalar `json:"units"`
	Percent Scalar `json:"percent"`
	Max     Scalar `json:"_max"`
}

// UserInformation is the subset of Variables::get_user_information the exporter needs.
type UserInformation struct {
	User Scalar `json:"user"`
	IP   Scalar `json:"ip"`
}

// ResourceUsage is one entry of ResourceUsage::get_usages.
type ResourceUsage struct {
	ID      string `json:"id"`
	Usage   Scalar `json:"usage"`
	Maximum Scalar `json:"maximum"`
}

// Database is one entry of Mysql::list_databases or Postgresql::list_databases.
type Database struct {
	Database  string `json:"database"`
	DiskUsage Scalar `json:"disk_usage"`
}

// Mailbox is one entry of Email::list_pops_with_disk. DiskUsed is in bytes.
type Mailbox struct {
	Email    string `json:"email"`
	DiskUsed Scalar `json:"_diskused"`
}

// FTPAccount is one entry of Ftp::list_ftp_with_disk. DiskUsed is in megabytes.
type FTPAccount struct {
	Login    string `json:"login"`
	DiskUsed Scalar `json:"_diskused"`
}
