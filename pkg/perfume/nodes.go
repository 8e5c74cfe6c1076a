package perfume

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/banghyang/scentflow/pkg/catalog"
	"github.com/banghyang/scentflow/pkg/flowgraph"
	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/llm"
	"github.com/banghyang/scentflow/pkg/history"
	"github.com/banghyang/scentflow/pkg/imagegen"
)

// fallbackContent is the narrative for catalog-sourced recommendations.
const fallbackContent = "Recommended perfumes based on spices"

// generate calls the model, retrying transient failures.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	res := flowerrors.Retry(ctx, e.retry, func(ctx context.Context) (string, error) {
		return llm.Generate(ctx, e.deps.LLM, prompt)
	})
	e.metrics.RecordDependencyCall(ctx, "llm", time.Since(start), res.Err)
	return res.Value, res.Err
}

func (e *Engine) processInput(ctx flowgraph.Context, s State) (State, error) {
	s.Input = strings.Join(strings.Fields(s.Input), " ")
	s.Intent = IntentUnknown
	if s.Input == "" {
		ctx.Logger().Warn("empty input")
		s.Error = errEmptyInput
		s.Next = NodeErrorHandler
		return s, nil
	}

	ctx.Logger().Info("input received", slog.Int("length", len(s.Input)))
	s.Next = NodeIntentClassifier
	return s, nil
}

func (e *Engine) classifyIntent(ctx flowgraph.Context, s State) (State, error) {
	reply, err := e.generate(ctx, buildIntentPrompt(s.Input))
	if err != nil {
		ctx.Logger().Warn("intent classification failed, falling back to chat",
			slog.String("error", err.Error()))
		s.Intent = IntentChat
	} else {
		s.Intent = ParseIntent(reply)
	}

	ctx.Logger().Info("intent classified", slog.String("intent", string(s.Intent)))
	s.Next = intentNodes[s.Intent]
	return s, nil
}

// recommendationNode builds a recommendation branch. On success control
// passes to success; when both tiers fail, to error_handler.
func (e *Engine) recommendationNode(intent Intent, success string) flowgraph.NodeFunc[State] {
	return func(ctx flowgraph.Context, s State) (State, error) {
		logger := ctx.Logger()

		reply, err := e.modelRecommendation(ctx, intent, s.Input)
		if err == nil {
			logger.Info("recommendation generated", slog.Int("count", len(reply.Recommendations)))
			if reply.LineID != nil {
				s.LineID = reply.LineID
			}
			s = e.accept(ctx, s, intent, reply.Recommendations, reply.Content)
			s.Next = success
			return s, nil
		}

		logger.Warn("model recommendation unusable, querying catalog",
			slog.String("error", err.Error()),
			slog.String("category", flowerrors.Categorize(err).String()),
		)
		if reply.LineID != nil && s.LineID == nil {
			s.LineID = reply.LineID
		}

		recs, err := e.catalogRecommendation(ctx, &s)
		if err != nil {
			logger.Error("catalog recommendation failed", slog.String("error", err.Error()))
		}
		if len(recs) > 0 {
			logger.Info("catalog recommendation found", slog.Int("count", len(recs)))
			s = e.accept(ctx, s, intent, recs, fallbackContent)
			s.Next = success
			return s, nil
		}

		s.Error = errNoRecommendation
		s.Next = NodeErrorHandler
		return s, nil
	}
}

func (e *Engine) modelRecommendation(ctx context.Context, intent Intent, input string) (recommendationReply, error) {
	text, err := e.generate(ctx, buildRecommendationPrompt(intent, input))
	if err != nil {
		return recommendationReply{}, err
	}
	return decodeRecommendationReply(text)
}

// catalogRecommendation finds perfumes sharing middle notes with the
// request's spices.
func (e *Engine) catalogRecommendation(ctx context.Context, s *State) ([]Recommendation, error) {
	spices, err := e.resolveSpices(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(spices) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(spices))
	for i, sp := range spices {
		ids[i] = sp.ID
	}
	perfumes, err := e.deps.Catalog.FetchPerfumesByNotes(ctx, ids, catalog.DefaultPerfumeLimit)
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, 0, len(perfumes))
	for _, p := range perfumes {
		recs = append(recs, recommendationFromPerfume(p))
	}
	return recs, nil
}

// resolveSpices reuses State.Spices, or loads the spices of the line
// named by State.LineID, the keyword extractor, or defaultLineID.
func (e *Engine) resolveSpices(ctx context.Context, s *State) ([]catalog.Spice, error) {
	if len(s.Spices) > 0 {
		return s.Spices, nil
	}

	lineID := defaultLineID
	switch {
	case s.LineID != nil && *s.LineID > 0:
		lineID = *s.LineID
	case e.deps.Keywords != nil:
		id, err := e.deps.Keywords.ExtractLineID(ctx, s.Input)
		if err != nil {
			e.logger.Warn("keyword extraction failed", slog.String("error", err.Error()))
		} else if id > 0 {
			lineID = id
		}
	}
	s.LineID = intPtr(lineID)

	spices, err := e.deps.Catalog.FetchSpices(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("fetch spices for line %d: %w", lineID, err)
	}
	s.Spices = spices
	return spices, nil
}

func recommendationFromPerfume(p catalog.Perfume) Recommendation {
	reason := p.Description
	if len(p.MatchedNote) > 0 {
		notes := "Middle notes of " + strings.Join(p.MatchedNote, ", ")
		if reason == "" {
			reason = notes
		} else {
			reason = strings.TrimSuffix(reason, ".") + ". " + notes
		}
	}
	return Recommendation{Name: p.Name, Brand: p.Brand, Reason: reason}
}

// accept stores a successful recommendation and reports it to the
// recorder.
func (e *Engine) accept(ctx flowgraph.Context, s State, intent Intent, recs []Recommendation, content string) State {
	s.Recommendations = recs
	s.Content = content
	s.Error = ""
	s.Response = &Reply{
		Mode:            string(intent),
		Recommendations: recs,
		Content:         content,
		LineID:          s.LineID,
	}

	if e.deps.Recorder != nil {
		if err := e.deps.Recorder.RecordRecommendations(ctx, intent, recs); err != nil {
			ctx.Logger().Warn("recording recommendations failed", slog.String("error", err.Error()))
		}
	}
	return s
}

// generateImage is best effort: any failure leaves ImagePath nil and the
// request successful.
func (e *Engine) generateImage(ctx flowgraph.Context, s State) (out State, err error) {
	out = s
	out.Next = flowgraph.END
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger().Error("image generation panicked", slog.Any("panic", r))
			out.ImagePath = nil
			if out.Response != nil {
				out.Response.ImagePath = nil
			}
			err = nil
		}
	}()

	prompt, ok := BuildImagePrompt(s.Recommendations)
	if !ok || e.deps.Images == nil {
		return out, nil
	}

	res, genErr := e.deps.Images.Generate(ctx, prompt)
	if genErr != nil {
		ctx.Logger().Warn("image generation failed", slog.String("error", genErr.Error()))
		return out, nil
	}
	path, relErr := imagegen.Relocate(res.OutputPath, e.imageDir)
	if relErr != nil {
		ctx.Logger().Warn("storing generated image failed", slog.String("error", relErr.Error()))
		return out, nil
	}

	ctx.Logger().Info("image generated", slog.String("path", path))
	out.ImagePath = &path
	if out.Response != nil {
		out.Response.ImagePath = &path
	}
	return out, nil
}

func (e *Engine) chat(ctx flowgraph.Context, s State) (State, error) {
	logger := ctx.Logger()

	var past history.Context
	conv := e.deps.History
	if conv != nil && s.UserID != "" {
		loaded, err := conv.Load(ctx, s.UserID)
		if err != nil {
			logger.Warn("loading chat history failed", slog.String("error", err.Error()))
		} else {
			past = loaded
		}
	}

	reply, err := e.generate(ctx, buildChatPrompt(s.Input, past))
	if err != nil {
		logger.Error("chat reply failed", slog.String("error", err.Error()))
		s.Error = errChatFailed
		s.Next = NodeErrorHandler
		return s, nil
	}

	s.Content = reply
	s.Response = &Reply{Mode: string(IntentChat), Content: reply}
	s.Next = flowgraph.END

	if conv != nil && s.UserID != "" {
		if err := conv.Record(ctx, s.UserID, s.Input, reply); err != nil {
			logger.Warn("saving chat history failed", slog.String("error", err.Error()))
		}
	}
	return s, nil
}

// handleError turns State.Error into a Failure. It never fails itself.
func (e *Engine) handleError(ctx flowgraph.Context, s State) (out State, err error) {
	if s.Error == "" {
		s.Error = errUnknown
	}
	out = s
	out.Response = nil
	out.Recommendations = nil
	out.ImagePath = nil
	out.Next = flowgraph.END

	defer func() {
		if r := recover(); r != nil {
			ctx.Logger().Error("formatting failure panicked", slog.Any("panic", r))
			out.Failure = &Failure{
				Status:          string(StatusError),
				Message:         MessageTemporaryFailure,
				Recommendations: []Recommendation{},
			}
			err = nil
		}
	}()

	ctx.Logger().Error("request failed", slog.String("error", s.Error))
	out.Failure = newFailure(s.Error, e.now())
	return out, nil
}
