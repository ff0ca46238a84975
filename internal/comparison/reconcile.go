package comparison

// characteristicLabel is the fallback label for rows the model left unnamed.
func characteristicLabel(item Item) string {
	return item.ProductName + " — " + item.Characteristic
}

// reconcileRows makes the model's rows line up 1:1 with chunk.
// Missing rows are synthesized as unmatched placeholders and extra rows are dropped.
// It returns the rows and the number of placeholders added.
func reconcileRows(chunk []Item, got []map[string]any) ([]Row, int) {
	want := len(chunk)
	if len(got) > want {
		got = got[:want]
	}

	rows := make([]Row, 0, want)
	for _, obj := range got {
		rows = append(rows, rowFromObject(obj))
	}

	placeholders := 0
	for i := len(rows); i < want; i++ {
		rows = append(rows, placeholderRow(chunk[i]))
		placeholders++
	}

	for i := range rows {
		if rows[i].Characteristic == "" {
			rows[i].Characteristic = characteristicLabel(chunk[i])
		}
	}
	return rows, placeholders
}

func placeholderRow(item Item) Row {
	note := NoResultNote
	return Row{
		Characteristic: characteristicLabel(item),
		TZValue:        item.TZValue,
		PassportValue:  item.PassportValue,
		IsMatch:        false,
		Note:           &note,
	}
}
