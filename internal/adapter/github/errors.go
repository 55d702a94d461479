package github

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/google/go-github/v53/github"

	"github-star-curator/internal/common"
)

// classify 把 go-github 返回的错误归类为 common.Kind
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		rateErr   *github.RateLimitError
		abuseErr  *github.AbuseRateLimitError
		respErr   *github.ErrorResponse
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &rateErr):
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindRateLimited, statusOf(rateErr.Response), op, err)
	case errors.As(err, &abuseErr):
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindRateLimited, statusOf(abuseErr.Response), op, err)
	case errors.As(err, &respErr):
		status := statusOf(respErr.Response)
		if status == http.StatusNotFound {
			return common.ClassifiedError(common.ErrCodeNotFound, common.KindNotFound, status, op, err)
		}
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindHTTPStatus, status, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindTimeout, 0, op, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindTimeout, 0, op, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindMalformed, 0, op, err)
	case errors.As(err, &netErr):
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindTransport, 0, op, err)
	default:
		return common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindUnknown, 0, op, err)
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
