package commands

import (
	"io"
	"siiau-backend/lib/catalog"
	"siiau-backend/services/subscriptions"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func renderSections(out io.Writer, sections []catalog.Section) {
	t := newTable(out)
	t.AppendHeader(table.Row{"NRC", "Clave", "Materia", "Sec", "Cupos", "Disponibles", "Profesor", "Horario"})
	for _, s := range sections {
		t.AppendRow(table.Row{
			s.ID,
			s.SubjectCode,
			s.Name,
			s.SectionLabel,
			s.TotalCount(),
			s.AvailableCount(),
			s.Instructor(),
			s.FormattedSchedule(),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(sections)})
	t.Render()
}

func renderSubscriptions(out io.Writer, subs []subscriptions.Subscription) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Usuario", "NRC", "Clave", "Materia", "Umbral", "Ultimo aviso"})
	for _, s := range subs {
		last := "nunca"
		if !s.LastNotified.IsZero() {
			last = s.LastNotified.Format(time.DateTime)
		}
		t.AppendRow(table.Row{s.UserID, s.NRC, s.Code, s.Name, s.Threshold, last})
	}
	t.Render()
}
