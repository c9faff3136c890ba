// Package series реализует ограниченный накопитель живых метрик:
// FIFO-последовательность с фиксированной емкостью, при переполнении
// вытесняется самый старый элемент.
package series

// DefaultCap — емкость серий по умолчанию (столько точек держит фронт).
const DefaultCap = 300

type Ring[T any] struct {
	items []T
	cap   int
}

// NewRing создает буфер на capacity элементов. Неположительная емкость
// заменяется на DefaultCap.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Ring[T]{
		items: make([]T, 0, capacity),
		cap:   capacity,
	}
}

// Append добавляет точку в хвост. Операция тотальна: ошибок нет,
// на пределе емкости голова вытесняется до вставки. Существующие
// элементы никогда не переупорядочиваются.
func (r *Ring[T]) Append(v T) {
	if len(r.items) >= r.cap {
		// Сдвиг вместо реаллокации: копируем хвост на место головы
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = v
		return
	}
	r.items = append(r.items, v)
}

// Replace целиком заменяет содержимое (стратегия replace-list).
// Если снапшот длиннее емкости, остаются только последние cap точек.
func (r *Ring[T]) Replace(snapshot []T) {
	if len(snapshot) > r.cap {
		snapshot = snapshot[len(snapshot)-r.cap:]
	}
	r.items = r.items[:0]
	r.items = append(r.items, snapshot...)
}

func (r *Ring[T]) Len() int {
	return len(r.items)
}

func (r *Ring[T]) Cap() int {
	return r.cap
}

// Items отдает копию содержимого от старого к новому.
func (r *Ring[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Last возвращает самую свежую точку.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if len(r.items) == 0 {
		return zero, false
	}
	return r.items[len(r.items)-1], true
}
