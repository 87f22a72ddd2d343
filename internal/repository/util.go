package repository

import (
	"context"
	"time"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

// search runs a query, backing off when the cluster sheds load.
func search(searchService *elastic.SearchService) (*elastic.SearchResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := searchService.Do(context.Background())
		if err == nil || attempt == 3 || err.Error() != "elastic: Error 429 (Too Many Requests)" {
			return result, err
		}

		zap.L().Warn("Elastic: 429 (Too Many Requests)")
		time.Sleep(5 * time.Second)
	}
}
