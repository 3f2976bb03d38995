package main

import (
	"os"

	"safewalk/internal/dispatch"
	"safewalk/internal/history"
	"safewalk/internal/route"
)

// newDispatcher sets up the notification dispatcher: colorized stdout,
// plus a JSONL record when logFile is set. The cleanup closes any files.
func newDispatcher(logFile string) (dispatch.Dispatcher, func(), error) {
	cleanup := func() {}
	stdout := dispatch.NewStdoutDispatcher()
	if logFile == "" {
		return stdout, cleanup, nil
	}
	fd, err := dispatch.NewFileDispatcher(logFile + ".notifications")
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fd.Close() }
	return dispatch.NewMultiDispatcher(stdout, fd), cleanup, nil
}

// newSinks builds the time-series sinks for route points and alert events
// based on the log file flag and the GREPTIMEDB_ENDPOINT env var. Either
// return value may be nil when no sink applies.
func newSinks(logFile string) (route.PointWriter, history.AlertWriter, func(), error) {
	cleanup := func() {}

	var points []history.PointWriter
	var alerts []history.AlertWriter

	if logFile != "" {
		fw, err := history.NewFileWriter(logFile+".points", logFile+".alerts")
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() { fw.Close() }
		points = append(points, fw)
		alerts = append(alerts, fw)
	}

	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		db := os.Getenv("GREPTIMEDB_DATABASE")
		if db == "" {
			db = "public"
		}
		gw, err := history.NewGreptime(endpoint, db)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		points = append(points, gw)
		alerts = append(alerts, gw)
	}

	switch len(points) {
	case 0:
		return nil, nil, cleanup, nil
	case 1:
		return points[0], alerts[0], cleanup, nil
	default:
		mw := history.NewMultiWriter(points, alerts)
		return mw, mw, cleanup, nil
	}
}
