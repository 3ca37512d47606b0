// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"log/slog"
)

// Seed imports the dataset at path when the importer's repository is empty.
// It returns false without reading the file when permits are already stored.
func (im *Importer) Seed(ctx context.Context, path, sheet string) (bool, error) {
	count, err := im.repository.CountPermits(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		im.logger.Info("seed skipped", "rows", count)
		return false, nil
	}

	im.logger.Info("seeding empty store", "path", path)
	result, err := im.ImportFile(ctx, path, sheet)
	if err != nil {
		return false, err
	}
	im.logger.Info("seed done", slog.Int("written", result.Written), slog.Int("skipped", result.Skipped))
	return true, nil
}
