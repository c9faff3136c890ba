package audit

/*
Файл journal.go реализует журнал рисковых эпизодов — асинхронный сборщик
записей о завершенных циклах анализа с пакетной записью в PostgreSQL.

Ключевые особенности архитектуры:
- Non-blocking Logging: передача записей через неблокирующий канал.
  Задержки базы не влияют на конвейер анализа и на тики монитора.
- Batching: накопление записей в памяти и пакетная вставка (Bulk Insert)
  по таймеру или при достижении лимита (50 записей).
- Drain Pattern & Graceful Shutdown: при остановке сервиса буфер
  вычитывается полностью; закрытие входного канала и sync.WaitGroup
  гарантируют Final Flush без потери записей.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняются записи журнала
type Storage interface {
	// WriteEpisodes сохраняет пачку записей за один запрос
	WriteEpisodes(ctx context.Context, recs []EpisodeRecord) error
}

// Recorder — то, что видят продюсеры записей (монитор, HTTP-handler).
type Recorder interface {
	Record(rec EpisodeRecord)
}

type Journal struct {
	ch     chan EpisodeRecord
	repo   Storage
	logger *zap.Logger
	wg     sync.WaitGroup

	// Атомарный флаг на случай, если Record вызовут после остановки
	isClosed int32
}

func NewJournal(repo Storage, logger *zap.Logger) *Journal {
	return &Journal{
		ch:     make(chan EpisodeRecord, 1024),
		repo:   repo,
		logger: logger.Named("episode-journal"),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход и ждет, пока воркер допишет остатки буфера.
func (j *Journal) Stop() {
	atomic.StoreInt32(&j.isClosed, 1)

	// Крошечная пауза, чтобы записи в полете успели проскочить в канал
	time.Sleep(10 * time.Millisecond)

	j.logger.Info("stopping journal: closing channel and flushing buffer...")
	close(j.ch)
	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Record(rec EpisodeRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&j.isClosed) == 1 {
		j.logger.Warn("episode record dropped: journal is stopping", zap.String("id", rec.ID))
		return
	}

	// Load Shedding: при переполнении буфера запись уходит в обычный лог,
	// а не блокирует продюсера
	select {
	case j.ch <- rec:
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.String("id", rec.ID),
			zap.String("risk_type", rec.RiskType),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]EpisodeRecord, 0, 50)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст на момент Final Flush уже закрыт
		if err := j.repo.WriteEpisodes(context.Background(), batch); err != nil {
			j.logger.Error("journal flush failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop(): воркер сначала вычитал остатки,
				// только потом получил ok == false. Финальный сброс и выход.
				flush()
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, rec)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
