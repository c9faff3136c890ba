// Package view держит состояние страниц пульта: ограниченные серии,
// сводки и списки, плюс правила накатки входящих кадров потока
// (append-and-trim, shallow-merge, replace).
package view

import (
	"context"
	"sync"
)

// runAll исполняет задачи параллельно и дожидается всех. Семантика
// «все или ничего»: любая ошибка обесценивает весь пакет, частичные
// результаты не применяются — вызывающий ставит демо-набор целиком.
func runAll(ctx context.Context, tasks ...func(context.Context) error) error {
	errs := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(t func(context.Context) error) {
			defer wg.Done()
			errs <- t(ctx)
		}(task)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
