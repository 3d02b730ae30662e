package notify

import (
	"fmt"
	"siiau-backend/lib/catalog"
	"strings"
	"time"
)

const (
	SubjectAlert    = "Cupos disponibles"
	SubjectSummary  = "Resumen de suscripciones"
	SubjectStartup  = "Monitor SIIAU iniciado"
	SubjectShutdown = "Monitor SIIAU detenido"
)

// FormatSection renders the seat information of a section.
func FormatSection(s catalog.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Name)
	fmt.Fprintf(&b, "NRC: %s\n", s.ID)
	fmt.Fprintf(&b, "Clave: %s\n", s.SubjectCode)
	fmt.Fprintf(&b, "Cupos: %d/%d\n", s.AvailableCount(), s.TotalCount())
	fmt.Fprintf(&b, "Profesor: %s\n", s.Instructor())
	fmt.Fprintf(&b, "Horario: %s", s.FormattedSchedule())
	return b.String()
}

func FormatAlert(to string, s catalog.Section) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s: %s (%s)", SubjectAlert, s.Name, s.ID),
		Body: fmt.Sprintf(
			"¡Alerta de cupos!\n\n%s\n\n¡Date prisa para inscribirte!",
			FormatSection(s),
		),
	}
}

func status(s catalog.Section) string {
	if s.HasSeats() {
		return "Disponible"
	}
	return "Sin cupos"
}

// SummaryEntry is one subscription in a summary, Section is nil when the
// subscribed NRC is not in the current catalog.
type SummaryEntry struct {
	ID      string
	Name    string
	Section *catalog.Section
}

func FormatSummary(to string, entries []SummaryEntry, at time.Time) Message {
	var b strings.Builder
	b.WriteString("Resumen de tus suscripciones:\n\n")
	for _, e := range entries {
		if e.Section == nil {
			name := e.Name
			if name == "" {
				name = "NRC " + e.ID
			}
			fmt.Fprintf(&b, "- %s (NRC %s) no encontrado\n\n", name, e.ID)
			continue
		}
		s := e.Section
		fmt.Fprintf(&b, "- %s\n", s.Name)
		fmt.Fprintf(&b, "  NRC: %s | %s\n", s.ID, status(*s))
		fmt.Fprintf(&b, "  Cupos: %d/%d\n", s.AvailableCount(), s.TotalCount())
		fmt.Fprintf(&b, "  Profesor: %s\n\n", s.Instructor())
	}
	fmt.Fprintf(&b, "Total: %d suscripciones\n", len(entries))
	fmt.Fprintf(&b, "Actualizado: %s", at.Format("15:04:05"))

	return Message{
		To:      to,
		Subject: SubjectSummary,
		Body:    b.String(),
	}
}
