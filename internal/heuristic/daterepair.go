package heuristic

import (
	"strings"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
)

// ============================================================
// Reparo de datas ambíguas
// ============================================================
//
// Extração de documento escaneado é ruidosa: datas chegam como "2024-03-15",
// "15/03", "45", "dia 7" ou lixo puro. O trabalho desta função é "melhor data
// plausível", não fidelidade exata — o período de referência escolhido pelo
// usuário ancora tudo que estiver ambíguo.

// YearWindow is the plausible-year range used to decide whether a parsed
// year is real or a misread day. The window is configuration, not a
// constant: the "probably wrong" assumption drifts as real time advances.
type YearWindow struct {
	Min int
	Max int
}

// DefaultYearWindow is the operating window the heuristic was tuned on.
func DefaultYearWindow() YearWindow {
	return YearWindow{Min: 2020, Max: 2030}
}

// Plausible reports whether a year falls inside the window.
func (w YearWindow) Plausible(ano int) bool {
	return ano >= w.Min && ano <= w.Max
}

// RepairDate normalizes a raw extracted date string to a calendar date.
//
// Regras, na ordem:
//  1. String já em YYYY-MM-DD com ano plausível: retorna como está — a menos
//     que o chamador tenha fornecido período de referência explícito, caso em
//     que o dia é mantido e mês/ano são sobrescritos (extratores às vezes
//     trocam a ordem mês/dia na localização).
//  2. YYYY-MM-DD com ano implausível: o "ano" provavelmente é um dia mal
//     lido; reconstrói a data com o período de referência + esse dia.
//  3. Sem data estruturada: usa a primeira sequência de 1–2 dígitos como dia
//     (limitada a 31) com o período de referência.
//  4. Nada extraível: dia 1 do período de referência.
//
// O dia resultante é sempre grampeado ao último dia válido do mês.
func RepairDate(raw string, ref domain.Period, explicita bool, w YearWindow) time.Time {
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if w.Plausible(t.Year()) {
			if explicita {
				return monthDate(ref, t.Day())
			}
			return t
		}
		// Ano fora da janela: trata o componente de ano como dia mal lido.
		return monthDate(ref, t.Year())
	}

	if dia, ok := firstDayRun(raw); ok {
		if dia > 31 {
			dia = 31
		}
		return monthDate(ref, dia)
	}

	return monthDate(ref, 1)
}

// monthDate builds a date inside the reference month, clamping the day to
// the month's valid range.
func monthDate(ref domain.Period, dia int) time.Time {
	ultimo := daysInMonth(ref.Mes, ref.Ano)
	if dia < 1 {
		dia = 1
	}
	if dia > ultimo {
		dia = ultimo
	}
	return time.Date(ref.Ano, time.Month(ref.Mes), dia, 0, 0, 0, 0, time.UTC)
}

// daysInMonth returns the number of days in (mes, ano).
func daysInMonth(mes, ano int) int {
	return time.Date(ano, time.Month(mes)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// firstDayRun extracts the first run of exactly 1–2 digits from the string.
// Longer digit runs (anos, valores) are skipped.
func firstDayRun(s string) (int, bool) {
	runStart := -1
	flush := func(end int) (int, bool) {
		if runStart == -1 {
			return 0, false
		}
		length := end - runStart
		if length >= 1 && length <= 2 {
			dia := 0
			for _, r := range s[runStart:end] {
				dia = dia*10 + int(r-'0')
			}
			return dia, true
		}
		return 0, false
	}

	for i, r := range s {
		if r >= '0' && r <= '9' {
			if runStart == -1 {
				runStart = i
			}
			continue
		}
		if dia, ok := flush(i); ok {
			return dia, true
		}
		runStart = -1
	}
	return flush(len(s))
}
