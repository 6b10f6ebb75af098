package formatting

func plural(count int, one, few, many string) string {
	if count < 0 {
		count = -count
	}
	if count%10 == 1 && count%100 != 11 {
		return one
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return few
	}
	return many
}

// PluralizeAppointments склонение слова "запись"
func PluralizeAppointments(count int) string {
	return plural(count, "запись", "записи", "записей")
}

// PluralizeSeats склонение слова "место"
func PluralizeSeats(count int) string {
	return plural(count, "место", "места", "мест")
}

// PluralizeSlots склонение слова "слот"
func PluralizeSlots(count int) string {
	return plural(count, "слот", "слота", "слотов")
}
