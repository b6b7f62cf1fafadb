package cmd

import (
	"fmt"
	"os"
)

// Compact compacts the vault database to reclaim unused space
func Compact(app *App) error {
	path := app.Config.Store.Path

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	sizeBefore := info.Size()

	if err := app.Store.Compact(); err != nil {
		return err
	}

	info, err = os.Stat(path)
	if err != nil {
		return err
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
	return nil
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
