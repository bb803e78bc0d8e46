package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/model"
)

// ErrNoBackup means no backup file exists in Drive yet.
var ErrNoBackup = errors.New("gdrive: no backup found in Drive")

// Ledger is what Push and Pull need from the ledger.
type Ledger interface {
	SettingsStore
	ExportAll(ctx context.Context) (model.Backup, error)
	ImportAll(ctx context.Context, b model.Backup) error
}

// Push uploads a full export of l to the Drive file called fileName and
// returns its id. The file is created on first use; its id is remembered in
// the ledger settings. Drive settings themselves are not uploaded.
func Push(ctx context.Context, c *Client, l Ledger, fileName string) (string, error) {
	b, err := l.ExportAll(ctx)
	if err != nil {
		return "", err
	}
	b.Settings = withoutDriveSettings(b.Settings)

	var buf bytes.Buffer
	if err := ledger.EncodeBackup(&buf, b); err != nil {
		return "", err
	}

	id, err := resolveFileID(ctx, c, l, fileName)
	if err != nil {
		return "", err
	}
	if id == "" {
		if id, err = c.CreateFile(ctx, fileName); err != nil {
			return "", err
		}
	}

	err = c.Upload(ctx, id, buf.Bytes())
	if errors.Is(err, ErrNotFound) {
		// The remembered file was deleted in Drive; start a new one.
		c.log.Info("drive backup file vanished, creating a new one", zap.String("fileId", id))
		if id, err = c.CreateFile(ctx, fileName); err != nil {
			return "", err
		}
		err = c.Upload(ctx, id, buf.Bytes())
	}
	if err != nil {
		return "", err
	}

	if err := l.PutSetting(ctx, SettingFileID, id); err != nil {
		return "", fmt.Errorf("remembering drive file id: %w", err)
	}
	return id, nil
}

// Pull downloads the Drive backup and restores it into l.
func Pull(ctx context.Context, c *Client, l Ledger, fileName string) (model.Backup, error) {
	id, err := resolveFileID(ctx, c, l, fileName)
	if err != nil {
		return model.Backup{}, err
	}
	if id == "" {
		return model.Backup{}, ErrNoBackup
	}

	data, err := c.Download(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return model.Backup{}, fmt.Errorf("%w: %v", ErrNoBackup, err)
	}
	if err != nil {
		return model.Backup{}, err
	}

	b, err := ledger.DecodeBackup(bytes.NewReader(data))
	if err != nil {
		return model.Backup{}, err
	}
	b.Settings = withoutDriveSettings(b.Settings)
	if err := l.ImportAll(ctx, b); err != nil {
		return model.Backup{}, err
	}
	if err := l.PutSetting(ctx, SettingFileID, id); err != nil {
		return b, fmt.Errorf("remembering drive file id: %w", err)
	}
	return b, nil
}

// resolveFileID returns the remembered file id, or looks the file up by
// name. An empty id means no file exists yet.
func resolveFileID(ctx context.Context, c *Client, l Ledger, fileName string) (string, error) {
	var id string
	ok, err := l.GetSetting(ctx, SettingFileID, &id)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id, _, err = c.FindFile(ctx, fileName)
	return id, err
}

func withoutDriveSettings(settings []model.Setting) []model.Setting {
	out := make([]model.Setting, 0, len(settings))
	for _, s := range settings {
		if strings.HasPrefix(s.Key, "drive.") {
			continue
		}
		out = append(out, s)
	}
	return out
}
