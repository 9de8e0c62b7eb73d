package sentry

import (
	"context"
	"fmt"
	"log"

	"github.com/getsentry/raven-go"

	"github.com/aodn/pipeline/common"
	"github.com/aodn/pipeline/common/handlerctx"
)

// getSentryClient returns a reporter which logs to Sentry if sentryDsn is provided.
// Logs to standard logger if sentryDsn is nil.
func getSentryClient(env string, sentryDsn string) *raven.Client {
	if sentryDsn == "" {
		return nil
	}

	sentryClient, err := raven.NewClient(sentryDsn, map[string]string{
		"version": common.GetVersion(),
		"env":     env,
	})

	if err != nil {
		log.Println("Error creating a Sentry client:", err)
		return nil
	}

	return sentryClient
}

type key int

const errReporterKey key = 0

// CreateAndInstallSentryClient installs a Sentry client to the supplied context.
// If an empty dsn is provided, the installed client will be nil.
func CreateAndInstallSentryClient(ctx context.Context, env string, dsn string) context.Context {
	sentryClient := getSentryClient(env, dsn)
	if sentryClient != nil {
		ctx = context.WithValue(ctx, errReporterKey, sentryClient)
	}

	return ctx
}

func getErrorReporterFromContext(ctx context.Context) *raven.Client {
	r, ok := ctx.Value(errReporterKey).(*raven.Client)
	if !ok {
		// If no error reporter is installed, we'll use log.Print methods.
		return nil
	}

	return r
}

// ReportError logs an error to Sentry if a sentry client is installed in the context.
// Logs to standard logger otherwise.
func ReportError(ctx context.Context, err error) {
	sentryClient := getErrorReporterFromContext(ctx)
	reportError(ctx, sentryClient, err)
}

// ReportMessage logs a message to Sentry if a sentry client is installed.
// Logs to standard logger otherwise.
func ReportMessage(ctx context.Context, msg string) {
	sentryClient := getErrorReporterFromContext(ctx)

	reportMessage(ctx, sentryClient, msg)
}

func reportError(ctx context.Context, sentryClient *raven.Client, err error) {
	if sentryClient != nil {
		sentryClient.CaptureError(err, map[string]string{}, sentryTags(ctx))
	} else {
		log.Printf("[Sentry Error] %s\n", err)
	}
}

func reportMessage(ctx context.Context, sentryClient *raven.Client, msg string) {
	if sentryClient != nil {
		sentryClient.CaptureMessage(msg, map[string]string{}, sentryTags(ctx))
	} else {
		log.Printf("[Sentry Message] %s\n", msg)
	}
}

// sentryTags attaches the active handler name and current phase as extra context
// on the Sentry report, the generalization of the teacher's raven.NewHttp(req)
// interface (there is no HTTP request once execution is inside the runtime).
func sentryTags(ctx context.Context) *raven.Http {
	state, ok := handlerctx.StateFromContext(ctx)
	if !ok {
		return nil
	}
	return &raven.Http{
		URL:    fmt.Sprintf("handler://%s", state.HandlerName),
		Method: state.Phase.String(),
	}
}

// ReportPanic sends a recovered panic value to Sentry, the generalization
// of the teacher's martini PanicHandler middleware to a non-HTTP call
// site. The caller decides what happens next (the handler runtime converts
// the panic into a phase error instead of re-raising, so notification
// still runs).
func ReportPanic(ctx context.Context, e interface{}) {
	if err, ok := e.(error); ok {
		ReportError(ctx, err)
		return
	}
	ReportMessage(ctx, fmt.Sprintf("Caught error %v", e))
}
