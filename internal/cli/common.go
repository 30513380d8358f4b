package cli

import (
	"github.com/rmarkell/quantcal/internal/dataset"
)

// loadPool loads an image pool, with labels when a label path is given,
// capped to at most `samples` entries when samples > 0.
func loadPool(imagesPath, labelsPath string, samples int) (*dataset.Pool, error) {
	var (
		pool *dataset.Pool
		err  error
	)
	if labelsPath != "" {
		pool, err = dataset.LoadImagePool(imagesPath, labelsPath)
	} else {
		pool, err = dataset.LoadImages(imagesPath)
	}
	if err != nil {
		return nil, err
	}
	return pool.Take(samples), nil
}

// resolveInt returns the flag value when set (> 0), otherwise the
// configured fallback.
func resolveInt(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}
