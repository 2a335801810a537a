package services

import (
	"context"
	"strings"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
)

const (
	insertChatbotLogQuery = "INSERT INTO chatbot_logs (user_id, message, response) VALUES (?, ?, ?)"
	chatbotLogTimeout     = 300 * time.Millisecond
)

// chatRule maps keywords to a reply topic. Rules are tried in order and the
// first rule with a keyword contained in the message wins.
type chatRule struct {
	topic    string
	keywords []string
}

const defaultTopic = "default"

var chatRules = []chatRule{
	{"greeting", []string{"hello", "hi", "hey", "greeting"}},
	{"help", []string{"help", "what can you do", "assist"}},
	{"smartphones", []string{"phone", "smartphone", "iphone", "samsung", "mobile"}},
	{"laptops", []string{"laptop", "macbook", "notebook", "computer"}},
	{"headphones", []string{"headphone", "headset", "earphone"}},
	{"earbuds", []string{"earbud", "airpod", "wireless earbud"}},
	{"price", []string{"price", "cost", "how much", "expensive"}},
	{"delivery", []string{"delivery", "shipping", "deliver", "ship"}},
	{"return", []string{"return", "refund", "exchange", "warranty"}},
	{"contact", []string{"contact", "email", "phone", "address", "call"}},
	{"budget phone", []string{"budget", "cheap", "affordable", "economical"}},
	{"camera phone", []string{"camera", "photo", "picture", "photography"}},
	{"battery", []string{"battery", "charge", "power", "backup"}},
	{"storage", []string{"storage", "memory", "gb", "space"}},
}

var chatResponses = map[string][]string{
	"greeting": {
		"Hello! 👋 I'm your AI shopping assistant. How can I help you today?",
		"Hi there! Welcome to TechStore. How can I assist you?",
		"Greetings! I'm here to help you with your shopping needs.",
	},
	"help": {
		"I can help you with: • Product information • Category details • Price & deals • Delivery info • Return policy",
		"I can assist you with: 1. Finding products 2. Checking prices 3. Delivery information 4. Return policies",
	},
	"smartphones": {
		"We have a wide range of smartphones from Apple, Samsung, OnePlus, Google, and more. Check our smartphone category for the latest models!",
		"Looking for smartphones? We have iPhones, Samsung Galaxy, Google Pixel, and other premium brands with various price ranges.",
	},
	"laptops": {
		"We offer laptops for every need: MacBook for professionals, gaming laptops from Asus and MSI, and ultrabooks from Dell and HP.",
		"Browse our laptop collection featuring MacBooks, Dell XPS, HP Spectre, gaming laptops, and budget-friendly options.",
	},
	"headphones": {
		"We have noise-cancelling headphones from Sony and Bose, premium audio from Sennheiser, and gaming headsets.",
		"Check out our headphone selection including Sony WH-1000XM5, Bose QC45, Apple AirPods Max, and more!",
	},
	"earbuds": {
		"Our earbuds collection includes Apple AirPods Pro, Sony WF-1000XM5, Samsung Galaxy Buds, and Bose QuietComfort.",
		"We have true wireless earbuds from top brands with features like noise cancellation and long battery life.",
	},
	"price": {
		"Prices vary by product and specifications. You can check individual product pages for current prices and deals.",
		"We offer competitive prices across all categories. Check our deals section for special offers!",
	},
	"delivery": {
		"We offer free shipping on orders above ₹5000. Delivery usually takes 3-7 business days across India.",
		"Standard delivery: 5-7 days • Express delivery: 2-3 days (extra charges apply) • Free shipping on orders above ₹5000",
	},
	"return": {
		"We have a 10-day return policy for unused products in original packaging. Refunds are processed within 5-7 business days.",
		"Returns are accepted within 10 days of delivery. Products must be unused with original packaging and accessories.",
	},
	"contact": {
		"You can contact us at: • Phone: 1800-123-4567 • Email: support@techstore.com • Address: 123 Tech Street, Mumbai",
		"Reach us at support@techstore.com or call 1800-123-4567. We're available 9 AM to 8 PM, Monday to Saturday.",
	},
	"budget phone": {
		"For budget smartphones, check out Nothing Phone 2 (₹44,999) or OnePlus 11 5G (₹56,999). Great value for money!",
		"Best budget options: Nothing Phone 2 (₹44,999) offers great features at an affordable price.",
	},
	"camera phone": {
		"For best camera: iPhone 15 Pro (₹1,29,999), Samsung S23 Ultra (₹1,24,999), or Google Pixel 8 Pro (₹1,06,999).",
		"Top camera phones: Samsung S23 Ultra with 200MP camera or iPhone 15 Pro with advanced photography features.",
	},
	"battery": {
		"For long battery life: Samsung S23 Ultra (5000mAh), OnePlus 11 (5000mAh), or iPhone 15 Pro (3274mAh).",
		"Best battery life in smartphones: Samsung Galaxy series and OnePlus models typically have large batteries.",
	},
	"storage": {
		"Most smartphones come with 128GB, 256GB, or 512GB storage options. Some high-end models offer 1TB.",
		"Storage options vary: Entry-level: 128GB • Mid-range: 256GB • Premium: 512GB-1TB • Choose based on your needs.",
	},
	defaultTopic: {
		"I'm not sure I understand. Could you rephrase your question?",
		"I'm here to help with shopping queries. Try asking about products, prices, or delivery!",
		"Please ask me about our products, categories, prices, or store policies.",
	},
}

// ChatbotService answers shopping questions from a fixed keyword table
type ChatbotService struct {
	db         *db.DB
	metrics    *metrics.AppMetrics
	rand       Rand
	logTimeout time.Duration
}

func NewChatbotService(db *db.DB, metrics *metrics.AppMetrics, rnd Rand) *ChatbotService {
	return &ChatbotService{db: db, metrics: metrics, rand: rnd, logTimeout: chatbotLogTimeout}
}

// Reply picks a canned answer for message. Anonymous callers are logged
// with user id 0.
func (s *ChatbotService) Reply(ctx context.Context, message string) (string, error) {
	message = strings.ToLower(strings.TrimSpace(message))
	if message == "" {
		return "", validationError("Message cannot be empty")
	}

	topic := classify(message)
	pool := chatResponses[topic]
	response := pool[s.rand.IntN(len(pool))]

	s.metrics.ChatbotMessages.Add(ctx, 1, s.metrics.Attrs(attribute.String("category", topic)))

	userID, _ := session.UserFromContext(ctx)
	s.logExchange(ctx, userID, message, response)

	return response, nil
}

func classify(message string) string {
	for _, rule := range chatRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(message, keyword) {
				return rule.topic
			}
		}
	}
	return defaultTopic
}

// logExchange stores the conversation turn. It outlives a cancelled request
// but never delays the reply by more than logTimeout.
func (s *ChatbotService) logExchange(ctx context.Context, userID int64, message, response string) {
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.db.ExecContext(logCtx, insertChatbotLogQuery, userID, message, response)
	s.metrics.RecordDBQuery(ctx, "INSERT", "chatbot_logs", insertChatbotLogQuery, start, err)
	if err != nil {
		logger.Warn(ctx).Err(err).Int64("user_id", userID).Msg("chatbot log failed")
	}
}
