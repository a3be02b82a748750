package collectors

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"
)

const (
	mysqlDiskUsageMetric    = "cpanel_mysql_db_disk_usage"
	postgresDiskUsageMetric = "cpanel_postgres_db_disk_usage"
	emailDiskUsageMetric    = "cpanel_email_disk_usage"
	ftpDiskUsageMetric      = "cpanel_ftp_account_disk_usage"
)

func NewMySQLCollector(deps *CollectorDependencies) *Category[uapi.Database] {
	return NewCategory(deps, CategoryPolicy[uapi.Database]{
		Name:   "mysql",
		Fetch:  deps.Client.ListMySQLDatabases,
		Format: databaseFormatter(mysqlDiskUsageMetric),
	})
}

func NewPostgresCollector(deps *CollectorDependencies) *Category[uapi.Database] {
	return NewCategory(deps, CategoryPolicy[uapi.Database]{
		Name:   "postgresql",
		Fetch:  deps.Client.ListPostgresDatabases,
		Format: databaseFormatter(postgresDiskUsageMetric),
	})
}

func NewEmailCollector(deps *CollectorDependencies) *Category[uapi.Mailbox] {
	return NewCategory(deps, CategoryPolicy[uapi.Mailbox]{
		Name:   "email",
		Fetch:  deps.Client.ListEmailAccounts,
		Format: FormatMailbox,
	})
}

func NewFTPCollector(deps *CollectorDependencies) *Category[uapi.FTPAccount] {
	return NewCategory(deps, CategoryPolicy[uapi.FTPAccount]{
		Name:   "ftp",
		Fetch:  deps.Client.ListFTPAccounts,
		Format: FormatFTPAccount,
	})
}

// databaseFormatter passes the reported disk usage through, it is already in bytes
func databaseFormatter(metric string) func(uapi.Database, exposition.LabelSet) ([]exposition.Line, error) {
	return func(db uapi.Database, labels exposition.LabelSet) ([]exposition.Line, error) {
		value, err := passthrough(db.DiskUsage)
		if err != nil {
			return nil, fmt.Errorf("database %s: %w", db.Database, err)
		}
		return []exposition.Line{{Name: metric, Labels: labels.With("db", db.Database), Value: value}}, nil
	}
}

// FormatMailbox renders the mailbox disk usage, reported as a byte count
func FormatMailbox(m uapi.Mailbox, labels exposition.LabelSet) ([]exposition.Line, error) {
	bytes, err := strconv.ParseInt(strings.TrimSpace(m.DiskUsed.String()), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mailbox %s: disk usage %q is not an integer", m.Email, m.DiskUsed.String())
	}
	return []exposition.Line{{Name: emailDiskUsageMetric, Labels: labels.With("email", m.Email), Value: exposition.Int(bytes)}}, nil
}

// FormatFTPAccount renders the FTP account disk usage, reported in megabytes, as bytes
func FormatFTPAccount(a uapi.FTPAccount, labels exposition.LabelSet) ([]exposition.Line, error) {
	megabytes, ok := a.DiskUsed.Float()
	if !ok {
		return nil, fmt.Errorf("ftp account %s: disk usage %q is not numeric", a.Login, a.DiskUsed.String())
	}
	bytes := int64(math.Round(megabytes * mebibyte))
	return []exposition.Line{{Name: ftpDiskUsageMetric, Labels: labels.With("ftp_account", a.Login), Value: exposition.Int(bytes)}}, nil
}

// passthrough keeps integral values as integers and anything else as a float
func passthrough(s uapi.Scalar) (exposition.Value, error) {
	if i, err := strconv.ParseInt(strings.TrimSpace(s.String()), 10, 64); err == nil {
		return exposition.Int(i), nil
	}
	f, ok := s.Float()
	if !ok {
		return exposition.Value{}, fmt.Errorf("disk usage %q is not numeric", s.String())
	}
	return exposition.Float(f), nil
}
