package service

import (
	"sort"

	"github.com/d60-Lab/power-monitor/internal/normalize"
	"github.com/d60-Lab/power-monitor/internal/repository"
)

// Candidate 一个待通知的 (customer, outage) 候选
type Candidate struct {
	CustomerID string
	FirstName  string
	Email      string
}

// Matcher 位置匹配器。基于单个周期的订阅时点快照构建索引，
// 只对本周期的增量事件调用，工作量与增量成正比
type Matcher struct {
	// exact: 完整邮编模式 -> 订阅者；area: outward code 模式 -> 订阅者
	exact map[string][]repository.SubscriberEntry
	area  map[string][]repository.SubscriberEntry
}

// NewMatcher 预规范化订阅模式并建索引；非法模式直接忽略
func NewMatcher(snapshot []repository.SubscriberEntry) *Matcher {
	m := &Matcher{
		exact: make(map[string][]repository.SubscriberEntry),
		area:  make(map[string][]repository.SubscriberEntry),
	}
	for _, e := range snapshot {
		p := normalize.Postcode(e.LocationPattern)
		if p == "" {
			continue
		}
		if normalize.IsAreaPattern(p) {
			m.area[p] = append(m.area[p], e)
		} else {
			m.exact[p] = append(m.exact[p], e)
		}
	}
	return m
}

// Match 求事件受影响邮编命中的订阅者集合。
// 同一用户多个模式命中同一事件也只出现一次（集合语义），
// 区域级与邮编级无优先级之分
func (m *Matcher) Match(postcodes []string) []Candidate {
	seen := make(map[string]Candidate)
	for _, pc := range postcodes {
		for _, e := range m.exact[pc] {
			seen[e.CustomerID] = Candidate{CustomerID: e.CustomerID, FirstName: e.FirstName, Email: e.Email}
		}
		for _, e := range m.area[normalize.OutwardCode(pc)] {
			seen[e.CustomerID] = Candidate{CustomerID: e.CustomerID, FirstName: e.FirstName, Email: e.Email}
		}
	}

	out := make([]Candidate, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}
