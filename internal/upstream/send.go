package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"igdm/internal/errs"
)

// SendToThread posts a text message to an existing thread. A send is never
// blindly retried: when a transport failure leaves the outcome unknown, the
// thread is re-read and scanned for our client context token before a
// single re-issue (write-then-verify).
func (g *Gateway) SendToThread(ctx context.Context, threadID, text string) (RawItem, error) {
	clientContext := uuid.NewString()
	form := url.Values{
		"thread_id":      {threadID},
		"text":           {text},
		"client_context": {clientContext},
	}

	item, err := g.broadcast(ctx, form)
	if err == nil {
		return item, nil
	}
	if !errs.IsKind(err, errs.KindTransient) {
		return RawItem{}, err
	}

	// Outcome unknown. Check whether the first attempt landed.
	if found, ok := g.findByClientContext(ctx, threadID, clientContext); ok {
		g.log.Info("send verified after ambiguous failure",
			zap.String("thread_id", threadID))
		return found, nil
	}

	item, retryErr := g.broadcast(ctx, form)
	if retryErr == nil {
		return item, nil
	}
	if errs.IsKind(retryErr, errs.KindTransient) {
		if found, ok := g.findByClientContext(ctx, threadID, clientContext); ok {
			return found, nil
		}
	}
	return RawItem{}, retryErr
}

// SendToUser posts a text message to a 1:1 thread with the given user,
// creating the thread if needed. No thread is known to verify against on an
// ambiguous failure, so the ambiguity surfaces to the caller instead of a
// blind retry.
func (g *Gateway) SendToUser(ctx context.Context, userPK, text string) (RawItem, error) {
	form := url.Values{
		"recipient_users": {`[[` + userPK + `]]`},
		"text":            {text},
		"client_context":  {uuid.NewString()},
	}

	item, err := g.broadcast(ctx, form)
	if err != nil && errs.IsKind(err, errs.KindTransient) {
		return RawItem{}, errs.New(errs.KindTransient,
			"send outcome unknown: the message may or may not have been delivered; check the thread before resending")
	}
	return item, err
}

func (g *Gateway) broadcast(ctx context.Context, form url.Values) (RawItem, error) {
	body, err := g.doOnce(ctx, http.MethodPost, "/direct_v2/threads/broadcast/text/", nil, form)
	if err != nil {
		return RawItem{}, err
	}

	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Payload == nil {
		return RawItem{}, errs.New(errs.KindFatal, "unrecognized send response")
	}
	item := *resp.Payload
	if item.ClientContext == "" {
		item.ClientContext = form.Get("client_context")
	}
	return item, nil
}

// findByClientContext re-reads the thread head and looks for an item
// carrying our dedupe token. Best effort: any error reads as "not found".
func (g *Gateway) findByClientContext(ctx context.Context, threadID, clientContext string) (RawItem, bool) {
	thread, err := g.Thread(ctx, threadID, "", 20)
	if err != nil {
		g.log.Warn("write-then-verify read failed", zap.Error(err))
		return RawItem{}, false
	}
	for _, item := range thread.Items {
		if item.ClientContext == clientContext {
			return item, true
		}
	}
	return RawItem{}, false
}
