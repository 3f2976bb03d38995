package history

import (
	"context"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	"github.com/rotisserie/eris"

	"safewalk/internal/emergency"
	"safewalk/internal/route"
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter streams route points and alert events to GreptimeDB via the
// ingester client. Tables are auto-created on first write.
type GreptimeWriter struct {
	client     greptimeClient
	pointTable string
	alertTable string
}

// NewGreptime connects to a GreptimeDB endpoint ("host" or "host:port").
func NewGreptime(endpoint, database string) (*GreptimeWriter, error) {
	host := endpoint
	port := 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "greptime: connect")
	}
	return &GreptimeWriter{
		client:     client,
		pointTable: "route_points",
		alertTable: "alert_events",
	}, nil
}

// WritePoint inserts one accepted route point. It satisfies route.PointWriter.
func (w *GreptimeWriter) WritePoint(routeID string, pt route.Point) error {
	tbl, err := table.New(w.pointTable)
	if err != nil {
		return eris.Wrap(err, "greptime: new point table")
	}
	if err := addColumns(tbl,
		tagCol("route_id", types.STRING),
		fieldCol("lat", types.FLOAT),
		fieldCol("lon", types.FLOAT),
		fieldCol("accuracy", types.FLOAT),
		fieldCol("waypoint", types.BOOLEAN),
	); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return eris.Wrap(err, "greptime: point timestamp column")
	}

	if err := tbl.AddRow(routeID,
		pt.Location.Latitude, pt.Location.Longitude, pt.Location.Accuracy,
		pt.Waypoint, pt.Timestamp,
	); err != nil {
		return eris.Wrap(err, "greptime: point row")
	}

	_, err = w.client.Write(context.Background(), tbl)
	return eris.Wrap(err, "greptime: write point")
}

// WriteAlertEvent inserts one alert lifecycle event.
func (w *GreptimeWriter) WriteAlertEvent(ev emergency.Event) error {
	tbl, err := table.New(w.alertTable)
	if err != nil {
		return eris.Wrap(err, "greptime: new alert table")
	}
	if err := addColumns(tbl,
		tagCol("alert_id", types.STRING),
		tagCol("alert_type", types.STRING),
		fieldCol("kind", types.STRING),
		fieldCol("status", types.STRING),
		fieldCol("lat", types.FLOAT),
		fieldCol("lon", types.FLOAT),
		fieldCol("contacts_notified", types.INT64),
		fieldCol("countdown_remaining", types.INT64),
	); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return eris.Wrap(err, "greptime: alert timestamp column")
	}

	a := ev.Alert
	if err := tbl.AddRow(a.ID, string(a.Type),
		string(ev.Kind), string(a.Status),
		a.Location.Latitude, a.Location.Longitude,
		int64(len(a.ContactsNotified)), int64(ev.Remaining),
		a.Timestamp,
	); err != nil {
		return eris.Wrap(err, "greptime: alert row")
	}

	_, err = w.client.Write(context.Background(), tbl)
	return eris.Wrap(err, "greptime: write alert event")
}

type column struct {
	name string
	typ  types.ColumnType
	tag  bool
}

func tagCol(name string, typ types.ColumnType) column   { return column{name: name, typ: typ, tag: true} }
func fieldCol(name string, typ types.ColumnType) column { return column{name: name, typ: typ} }

func addColumns(tbl *table.Table, cols ...column) error {
	for _, c := range cols {
		var err error
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return eris.Wrapf(err, "greptime: column %s", c.name)
		}
	}
	return nil
}
