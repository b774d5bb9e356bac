package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-attempt-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., document DB).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quiz content in Redis and falls back to a loader on
// cache miss. Layout per quiz:
//
//	SET   quiz:{quizID}:meta      {descriptor JSON}
//	RPUSH quiz:{quizID}:questions {question JSON}...  (order preserved)
//
// A list rather than a hash keeps the question order, which an attempt
// depends on.
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.readCache(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.readCache(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.writeCache(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// FetchQuestions is the narrow view an attempt session uses.
func (r *QuizRepository) FetchQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	quiz, err := r.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

func (r *QuizRepository) readCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	rawMeta, err := r.client.Get(ctx, r.metaKey(quizID)).Result()
	if err != nil {
		return domain.Quiz{}, false
	}
	rawQuestions, err := r.client.LRange(ctx, r.questionsKey(quizID), 0, -1).Result()
	if err != nil || len(rawQuestions) == 0 {
		return domain.Quiz{}, false
	}

	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(rawMeta), &quiz.QuizDescriptor); err != nil {
		return domain.Quiz{}, false
	}
	quiz.Questions = make([]domain.Question, 0, len(rawQuestions))
	for _, raw := range rawQuestions {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return domain.Quiz{}, false
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, true
}

// writeCache is best-effort; a failed write just means the next GetQuiz hits
// the loader again.
func (r *QuizRepository) writeCache(ctx context.Context, quiz domain.Quiz) {
	meta, err := json.Marshal(quiz.QuizDescriptor)
	if err != nil {
		return
	}

	ttl := r.ttlWithJitter()
	metaKey := r.metaKey(quiz.ID)
	questionsKey := r.questionsKey(quiz.ID)

	pipe := r.client.Pipeline()
	pipe.Set(ctx, metaKey, meta, ttl)
	pipe.Del(ctx, questionsKey)
	for _, q := range quiz.Questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return
		}
		pipe.RPush(ctx, questionsKey, raw)
	}
	if ttl > 0 {
		pipe.Expire(ctx, questionsKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *QuizRepository) metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

